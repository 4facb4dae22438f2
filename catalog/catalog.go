// Package catalog 根据钱包配置的网关列表提供币种与发行方查询。
package catalog

import (
	"sync"

	"offer-desk/amount"
)

// Gateway 一个网关及其发行的币种。
type Gateway struct {
	Name       string
	Issuer     string
	Currencies []string
}

type entry struct {
	code   string
	issuer string
}

// Catalog 有序的 (币种, 发行方) 列表，原生资产总在最前面。并发安全，支持热替换。
type Catalog struct {
	mu      sync.RWMutex
	entries []entry
}

func New(gateways []Gateway) *Catalog {
	c := &Catalog{}
	c.Replace(gateways)
	return c
}

// Replace 用新的网关列表整体替换。
func (c *Catalog) Replace(gateways []Gateway) {
	entries := []entry{{code: amount.NativeCode}}
	for _, gw := range gateways {
		for _, code := range gw.Currencies {
			if code == "" || code == amount.NativeCode {
				continue
			}
			entries = append(entries, entry{code: code, issuer: gw.Issuer})
		}
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// IssuersFor 按配置顺序返回提供该币种的发行方；原生资产返回一个空 issuer。
func (c *Catalog) IssuersFor(code string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	issuers := make([]string, 0)
	for _, e := range c.entries {
		if e.code == code {
			issuers = append(issuers, e.issuer)
		}
	}
	return issuers
}

// Currencies 返回去重后的币种代码，保持首次出现的顺序。
func (c *Catalog) Currencies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool, len(c.entries))
	codes := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if seen[e.code] {
			continue
		}
		seen[e.code] = true
		codes = append(codes, e.code)
	}
	return codes
}
