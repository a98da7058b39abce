// Package main provides the entry point for the fundflow CLI.
package main

import (
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/cli"
)

func main() {
	cli.Execute()
}
