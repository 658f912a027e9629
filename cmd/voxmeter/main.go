// Package main is the entry point for voxmeter, the usage accounting
// and eligibility engine behind the voice assistant.
package main

func main() {
	Execute()
}
