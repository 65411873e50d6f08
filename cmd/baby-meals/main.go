// cmd/baby-meals/main.go
package main

import "mcp-baby-meals/internal/cmd"

func main() {
	cmd.Execute()
}
