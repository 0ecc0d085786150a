package cache

import (
	"net"
	"sync"
)

// AddrBook maps device ids to the address of the last controller that
// sent a command. The UDP listeners write it on every datagram and the
// state broadcaster reads it to decide where telemetry goes.
type AddrBook struct {
	mu    sync.RWMutex
	addrs map[string]*net.UDPAddr
}

// NewAddrBook creates a new AddrBook
func NewAddrBook() *AddrBook {
	return &AddrBook{
		addrs: make(map[string]*net.UDPAddr),
	}
}

// Get retrieves the last controller address for a device
func (c *AddrBook) Get(id string) (*net.UDPAddr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.addrs[id]
	return addr, ok
}

// Set stores the last controller address for a device
func (c *AddrBook) Set(id string, addr *net.UDPAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addrs[id] = addr
}

// Delete removes a device from the book
func (c *AddrBook) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.addrs, id)
}

// Reset clears all addresses from the book
func (c *AddrBook) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addrs = make(map[string]*net.UDPAddr)
}
