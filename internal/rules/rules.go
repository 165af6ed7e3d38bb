package rules

import (
	"net/mail"
	"sort"
	"strings"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// Checker labels mail from known sender domains without asking the classifier
type Checker struct {
	domains map[string]core.Label
	logger  *zap.Logger
}

// NewChecker creates a checker from a domain to label map. Entries whose
// label is outside the taxonomy are dropped with a warning.
func NewChecker(domainLabels map[string]string, logger *zap.Logger) *Checker {
	domains := make(map[string]core.Label, len(domainLabels))
	for domain, name := range domainLabels {
		domain = strings.ToLower(strings.TrimSpace(domain))
		domain = strings.TrimPrefix(domain, "@")
		label, err := core.ParseLabel(name)
		if err != nil {
			if logger != nil {
				logger.Warn("Ignoring sender rule", zap.String("domain", domain), zap.Error(err))
			}
			continue
		}
		domains[domain] = label
	}

	if len(domains) > 0 && logger != nil {
		names := make([]string, 0, len(domains))
		for d := range domains {
			names = append(names, d)
		}
		sort.Strings(names)
		logger.Info("Initialized sender rules", zap.Strings("domains", names))
	}

	return &Checker{
		domains: domains,
		logger:  logger,
	}
}

// Lookup returns the label for the sender's domain. Subdomains inherit the
// rule of their parent domain.
func (c *Checker) Lookup(from string) (core.Label, bool) {
	if len(c.domains) == 0 {
		return "", false
	}

	domain := domainOf(from)
	for domain != "" {
		if label, ok := c.domains[domain]; ok {
			if c.logger != nil {
				c.logger.Debug("Sender rule matched",
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return label, true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			break
		}
		domain = domain[i+1:]
	}

	return "", false
}

func domainOf(from string) string {
	addr := from
	if parsed, err := mail.ParseAddress(from); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
