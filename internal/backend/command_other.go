//go:build !unix

package backend

import "os/exec"

// killGroupOnCancel keeps the default cancellation, which kills only the
// direct child. WaitDelay still bounds the wait for inherited pipes.
func killGroupOnCancel(cmd *exec.Cmd) {}
