// Command bufferd serves a file-backed list as a feed of itemized changes.
package main

func main() {
	Execute()
}
