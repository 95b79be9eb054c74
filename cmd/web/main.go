package main

import "sparkreview_backend/internal/app"

func main() {
	app.Run()
}
