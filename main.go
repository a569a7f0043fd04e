// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/cg1/g1embed/cmd/g1embed"

func main() {
	cmd.Execute()
}
