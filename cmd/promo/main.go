package main

import "github.com/myindsound/promo/internal/cli"

func main() {
	cli.Execute()
}
