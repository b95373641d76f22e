package main

import "photo-studio-backend/internal/cli"

func main() {
	cli.Execute()
}
