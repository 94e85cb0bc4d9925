// Command speakerfilter categorizes speaker prospects for an event by sending
// a CSV export to the speaker filter service. It runs as an interactive
// terminal UI or headless for scripts.
package main

func main() {
	Execute()
}
