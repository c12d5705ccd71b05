/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "taskclaw/cmd"

func main() {
	cmd.Execute()
}
