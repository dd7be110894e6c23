// Command tendril runs the sentiment chatbot graph interactively or behind HTTP and MCP.
package main

func main() {
	Execute()
}
