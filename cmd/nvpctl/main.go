// Command nvpctl inspects and edits a directory of persistent regions.
package main

func main() {
	execute()
}
