// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package hostsvc

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// PortListening reports whether any local socket is listening on the
// TCP port. On Linux it reads /proc/net/tcp and /proc/net/tcp6 so the
// probe works without binding; elsewhere it falls back to a bind
// attempt.
func PortListening(port int) bool {
	if listening, ok := procPortListening(port); ok {
		return listening
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return true
	}
	listener.Close()
	return false
}

// procPortListening scans the kernel's socket tables. ok is false when
// the tables are unreadable (non-Linux hosts).
func procPortListening(port int) (listening, ok bool) {
	read := false
	for _, table := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		data, err := os.ReadFile(table)
		if err != nil {
			continue
		}
		read = true
		if tableHasListener(string(data), port) {
			return true, true
		}
	}
	return false, read
}

// tableHasListener parses one /proc/net/tcp table. Each row's second
// column is local_address as HEXIP:HEXPORT; the fourth is the socket
// state, 0A being LISTEN.
func tableHasListener(table string, port int) bool {
	lines := strings.Split(table, "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 || fields[3] != "0A" {
			continue
		}
		_, hexPort, found := strings.Cut(fields[1], ":")
		if !found {
			continue
		}
		localPort, err := strconv.ParseInt(hexPort, 16, 32)
		if err != nil {
			continue
		}
		if int(localPort) == port {
			return true
		}
	}
	return false
}
