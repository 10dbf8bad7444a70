//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package transformer

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
