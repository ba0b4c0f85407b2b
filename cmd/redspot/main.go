// Command redspot runs the tasks of an ink! smart contract project.
package main

func main() {
	Execute()
}
