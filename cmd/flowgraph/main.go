// Command flowgraph runs, checks and serves node graphs.
package main

func main() {
	Execute()
}
