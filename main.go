package main

import (
	"fmt"

	"github.com/netmesh/peerq/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
