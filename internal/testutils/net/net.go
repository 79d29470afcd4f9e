package testnet

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	mu    sync.Mutex
	taken = map[int]struct{}{}
)

// ServerAddr returns localhost address with a free port. The same port is
// not handed out twice during a test run.
func ServerAddr(t testing.TB) string {
	mu.Lock()
	defer mu.Unlock()

	for {
		l, err := net.Listen("tcp", "localhost:0")
		require.NoError(t, err)
		port := l.Addr().(*net.TCPAddr).Port
		require.NoError(t, l.Close())
		if _, ok := taken[port]; !ok {
			taken[port] = struct{}{}
			return fmt.Sprintf("localhost:%d", port)
		}
	}
}
