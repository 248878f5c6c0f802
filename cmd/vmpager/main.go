// Command vmpager runs synthetic workloads on a simulated demand-paged
// machine and reports how its virtual memory behaved.
package main

func main() {
	Execute()
}
