package populate

import (
	"fmt"
	"sync"

	"github.com/mzafarm/datasmith/internal/core"
)

// PacketCache owns the result-packet cache: the full in-memory packet for
// a generation job, replaced atomically by each new generation (spec.md
// §5's "result-packet cache is owned by the Populator").
type PacketCache struct {
	mu     sync.Mutex
	full   *core.TablePacket
	byID   map[string]*core.TablePacket
}

// NewPacketCache returns an empty cache.
func NewPacketCache() *PacketCache {
	return &PacketCache{byID: make(map[string]*core.TablePacket)}
}

// Paginate stores packet as the current full result and returns its first
// page, with total_pages recomputed from packet.PageSize.
func (c *PacketCache) Paginate(packet *core.TablePacket) *core.TablePacket {
	c.mu.Lock()
	defer c.mu.Unlock()

	pageSize := packet.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	total := packet.TotalEntries
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	packet.PageSize = pageSize
	packet.TotalPages = totalPages

	c.full = packet
	c.byID = map[string]*core.TablePacket{packet.ID: packet}

	first, _ := c.page(packet, 0)
	return first
}

// GetPage returns the requested page of the cached packet identified by
// id. page == nil returns a synthetic full-length packet concatenating
// every page's entries under the same id.
func (c *PacketCache) GetPage(id string, page *int) (*core.TablePacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	packet, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("populate: no cached packet with id %q", id)
	}

	if page == nil {
		full := *packet
		full.Page = 0
		full.TotalPages = 1
		return &full, nil
	}

	return c.page(packet, *page)
}

// Clear discards the cached result — backing clear_gen_packets.
func (c *PacketCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = nil
	c.byID = make(map[string]*core.TablePacket)
}

func (c *PacketCache) page(packet *core.TablePacket, page int) (*core.TablePacket, error) {
	pageSize := packet.PageSize
	start := page * pageSize
	if start < 0 || start > len(packet.Entries) {
		return nil, fmt.Errorf("populate: page %d out of range for packet %q", page, packet.ID)
	}
	end := start + pageSize
	if end > len(packet.Entries) {
		end = len(packet.Entries)
	}

	pagePacket := *packet
	pagePacket.Page = page
	pagePacket.Entries = packet.Entries[start:end]
	return &pagePacket, nil
}
