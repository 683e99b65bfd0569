package blocklist

// FeedSource represents a blocklist feed source
type FeedSource struct {
	Name        string     `yaml:"name" json:"name"`                 // Unique identifier
	DisplayName string     `yaml:"display_name" json:"display_name"` // Human-readable name
	URL         string     `yaml:"url" json:"url"`                   // Download URL
	Confidence  int        `yaml:"confidence" json:"confidence"`     // Default confidence level (0-100)
	Format      FeedFormat `yaml:"format" json:"format"`             // Parsing format
	Enabled     bool       `yaml:"enabled" json:"enabled"`           // Whether to use this feed
}

// FeedFormat defines how to parse the feed
type FeedFormat string

const (
	FormatIPList   FeedFormat = "ip_list"   // One IP per line
	FormatNetset   FeedFormat = "netset"    // Firehol format (IP/CIDR with comments)
	FormatCIDRList FeedFormat = "cidr_list" // CIDR ranges
	FormatDShield  FeedFormat = "dshield"   // DShield format (Start\tEnd\tNetblock...)
	FormatSpamhaus FeedFormat = "spamhaus"  // Spamhaus DROP format
)

// Valid reports whether the format is known to the parser
func (f FeedFormat) Valid() bool {
	switch f {
	case FormatIPList, FormatNetset, FormatCIDRList, FormatDShield, FormatSpamhaus:
		return true
	}
	return false
}

// ThreatCategory constants
const (
	CategoryBotnet   = "botnet"
	CategoryC2       = "c2"
	CategorySpam     = "spam"
	CategoryScanner  = "scanner"
	CategoryMalware  = "malware"
	CategoryAttacker = "attacker"
	CategoryMixed    = "mixed"
)

// DefaultFeeds returns the curated public feeds
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		// Firehol - Aggregated lists (highly curated)
		{
			Name:        "firehol_level1",
			DisplayName: "Firehol Level 1",
			URL:         "https://raw.githubusercontent.com/firehol/blocklist-ipsets/master/firehol_level1.netset",
			Confidence:  90,
			Format:      FormatNetset,
			Enabled:     true,
		},
		{
			Name:        "firehol_level2",
			DisplayName: "Firehol Level 2",
			URL:         "https://raw.githubusercontent.com/firehol/blocklist-ipsets/master/firehol_level2.netset",
			Confidence:  75,
			Format:      FormatNetset,
			Enabled:     true,
		},
		// Feodo Tracker - Botnet C2 servers (Emotet, Dridex, TrickBot, QakBot)
		{
			Name:        "feodo_tracker",
			DisplayName: "Feodo Tracker (Botnets)",
			URL:         "https://feodotracker.abuse.ch/downloads/ipblocklist.txt",
			Confidence:  95,
			Format:      FormatIPList,
			Enabled:     true,
		},
		// Emerging Threats - Compromised IPs
		{
			Name:        "emerging_threats",
			DisplayName: "Emerging Threats",
			URL:         "https://rules.emergingthreats.net/fwrules/emerging-Block-IPs.txt",
			Confidence:  85,
			Format:      FormatIPList,
			Enabled:     true,
		},
		// Spamhaus DROP - Hijacked IP ranges
		{
			Name:        "spamhaus_drop",
			DisplayName: "Spamhaus DROP",
			URL:         "https://www.spamhaus.org/drop/drop.txt",
			Confidence:  95,
			Format:      FormatSpamhaus,
			Enabled:     true,
		},
		{
			Name:        "spamhaus_edrop",
			DisplayName: "Spamhaus EDROP",
			URL:         "https://www.spamhaus.org/drop/edrop.txt",
			Confidence:  95,
			Format:      FormatSpamhaus,
			Enabled:     true,
		},
		// DShield - Top attackers
		{
			Name:        "dshield",
			DisplayName: "DShield Top Attackers",
			URL:         "https://www.dshield.org/block.txt",
			Confidence:  80,
			Format:      FormatDShield,
			Enabled:     true,
		},
		{
			Name:        "binary_defense",
			DisplayName: "Binary Defense",
			URL:         "https://www.binarydefense.com/banlist.txt",
			Confidence:  85,
			Format:      FormatIPList,
			Enabled:     true,
		},
		{
			Name:        "ci_army",
			DisplayName: "CI Army Bad Guys",
			URL:         "https://cinsscore.com/list/ci-badguys.txt",
			Confidence:  80,
			Format:      FormatIPList,
			Enabled:     true,
		},
		// Abuse.ch SSL Blacklist (C2)
		{
			Name:        "sslbl_aggressive",
			DisplayName: "Abuse.ch SSL Blacklist",
			URL:         "https://sslbl.abuse.ch/blacklist/sslipblacklist_aggressive.txt",
			Confidence:  90,
			Format:      FormatIPList,
			Enabled:     true,
		},
		{
			Name:        "blocklist_de",
			DisplayName: "Blocklist.de All",
			URL:         "https://lists.blocklist.de/lists/all.txt",
			Confidence:  75,
			Format:      FormatIPList,
			Enabled:     true,
		},
	}
}

// DefaultCategories groups the default feeds by threat category.
// A feed may appear in several categories.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		CategoryMixed:    {"firehol_level1", "firehol_level2"},
		CategoryBotnet:   {"feodo_tracker"},
		CategoryC2:       {"feodo_tracker", "sslbl_aggressive"},
		CategoryAttacker: {"emerging_threats", "binary_defense", "ci_army", "blocklist_de"},
		CategoryMalware:  {"spamhaus_drop", "spamhaus_edrop"},
		CategorySpam:     {"spamhaus_drop", "spamhaus_edrop", "blocklist_de"},
		CategoryScanner:  {"dshield", "ci_army"},
	}
}
