package blocklist

import (
	"bufio"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// maxLineSize bounds a single feed line (1 MiB)
const maxLineSize = 1 << 20

// Parser handles parsing of different blocklist formats
type Parser struct{}

// NewParser creates a new blocklist parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses content based on the feed format.
// Single addresses become host prefixes (/32 or /128); ranges are kept as prefixes.
func (p *Parser) Parse(content string, format FeedFormat) ([]netip.Prefix, error) {
	switch format {
	case FormatIPList:
		return p.parseLines(content, "#;", firstField)
	case FormatNetset, FormatCIDRList:
		return p.parseLines(content, "#", firstField)
	case FormatDShield:
		return p.parseLines(content, "#", dshieldField)
	case FormatSpamhaus:
		return p.parseLines(content, ";#", spamhausField)
	default:
		return p.parseLines(content, "#;", firstField)
	}
}

// parseLines scans content, skipping blank lines and lines starting with any comment rune
func (p *Parser) parseLines(content, comments string, extract func(string) string) ([]netip.Prefix, error) {
	var results []netip.Prefix
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.ContainsRune(comments, rune(line[0])) {
			continue
		}

		if prefix, ok := parseEntry(extract(line)); ok {
			results = append(results, prefix)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan feed: %w", err)
	}

	return results, nil
}

// firstField returns the first token, dropping trailing comments
func firstField(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// spamhausField handles "CIDR ; SBL_ID"
func spamhausField(line string) string {
	cidr, _, _ := strings.Cut(line, ";")
	return strings.TrimSpace(cidr)
}

// dshieldField handles "Start\tEnd\tNetblock\tAttacks..." and rebuilds Start/Netblock
func dshieldField(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	bits := 24
	if len(fields) >= 3 {
		if n, err := strconv.Atoi(fields[2]); err == nil {
			bits = n
		}
	}
	return fields[0] + "/" + strconv.Itoa(bits)
}

// parseEntry parses an address or CIDR and rejects reserved ranges
func parseEntry(s string) (netip.Prefix, bool) {
	if s == "" {
		return netip.Prefix{}, false
	}

	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, false
		}
		prefix = prefix.Masked()
		if isReserved(prefix.Addr()) {
			return netip.Prefix{}, false
		}
		return prefix, true
	}

	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	if isReserved(addr) {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// isReserved checks if the address is private/reserved
func isReserved(addr netip.Addr) bool {
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsMulticast() ||
		(addr.Is4() && (addr.As4()[0] == 0 || addr.As4()[0] >= 240))
}
