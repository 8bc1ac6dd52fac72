package main

import "mediastore/internal/app"

func main() {
	app.Run()
}
