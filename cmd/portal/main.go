// Package main is the entry point for the e-rythu portal service.
package main

func main() {
	Execute()
}
