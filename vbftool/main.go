/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package main

import "github.com/indrora/vbf/vbftool/cmd"

func main() {
	cmd.Execute()
}
