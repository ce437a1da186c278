package services

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

const (
	RawPrintPort   = 9100
	probeTimeout   = 300 * time.Millisecond
	discoveryLimit = 50
)

// --- Discovery Logic ---

// DiscoverPrinters scans the local /24 for hosts accepting raw print jobs.
func DiscoverPrinters(ctx context.Context, port int) ([]string, error) {
	localIP, err := utils.DetectLocalIP()
	if err != nil {
		return nil, fmt.Errorf("error detecting IP: %w", err)
	}
	parts := strings.Split(localIP, ".")
	subnet := strings.Join(parts[:3], ".")

	hosts := make([]string, 0, 254)
	for i := 1; i <= 254; i++ {
		hosts = append(hosts, fmt.Sprintf("%s.%d", subnet, i))
	}
	return ScanHosts(ctx, hosts, port), nil
}

// ScanHosts probes every host concurrently and returns those accepting TCP
// connections on port, in address order.
func ScanHosts(ctx context.Context, hosts []string, port int) []string {
	var (
		mu    sync.Mutex
		found []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(discoveryLimit)
	for _, host := range hosts {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if utils.Probe(host, port, probeTimeout) {
				mu.Lock()
				found = append(found, host)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(found, func(i, j int) bool {
		return ipLess(found[i], found[j])
	})
	return found
}

func ipLess(a, b string) bool {
	ia, ib := net.ParseIP(a).To4(), net.ParseIP(b).To4()
	if ia == nil || ib == nil {
		return a < b
	}
	for k := range ia {
		if ia[k] != ib[k] {
			return ia[k] < ib[k]
		}
	}
	return false
}
