// Command memsim replays the memory management scenarios of an operating
// systems course on the simulators of this module.
package main

func main() {
	Execute()
}
