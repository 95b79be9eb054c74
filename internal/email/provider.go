package email

// Provider delivers transactional notification mail.
type Provider interface {
	Send(to, subject, body string) error
	Close() error
}
