//go:build !unix

package server

import "net"

func listenConfig(bool) net.ListenConfig {
	return net.ListenConfig{}
}
