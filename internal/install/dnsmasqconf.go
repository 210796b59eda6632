// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"fmt"
	"strings"

	"github.com/spyicydev/macblock/internal/fsatomic"
)

const dnsmasqConfFileMode = 0o644

// RenderDnsmasqConf produces dnsmasq's static config, honoring the
// resolver's config contract: listen on loopback:53 as the
// dedicated user, source upstreams from the rendered servers-file, and
// include the compiled blocklist.
func RenderDnsmasqConf() string {
	var b strings.Builder
	fmt.Fprintln(&b, "listen-address=127.0.0.1")
	fmt.Fprintln(&b, "port=53")
	fmt.Fprintln(&b, "bind-interfaces")
	fmt.Fprintf(&b, "user=%s\n", DedicatedUser)
	fmt.Fprintln(&b, "no-resolv")
	fmt.Fprintln(&b, "no-poll")
	fmt.Fprintf(&b, "servers-file=%s\n", UpstreamConfPath())
	fmt.Fprintf(&b, "conf-file=%s\n", BlocklistConfPath())
	fmt.Fprintf(&b, "pid-file=%s\n", DnsmasqPIDPath())
	fmt.Fprintf(&b, "log-facility=%s\n", ResolverLogPath())
	return b.String()
}

// WriteDnsmasqConf atomically writes the rendered static config.
func WriteDnsmasqConf() error {
	return fsatomic.WriteFile(DnsmasqConfPath(), []byte(RenderDnsmasqConf()), dnsmasqConfFileMode)
}
