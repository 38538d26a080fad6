// SPDX-License-Identifier: MPL-2.0

// Command wheelsmith builds the binary wheels a package index is missing.
package main

import cmd "wheelsmith/cmd/wheelsmith"

func main() {
	cmd.Execute()
}
