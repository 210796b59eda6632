// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"bytes"
	"text/template"

	"github.com/spyicydev/macblock/internal/errors"
	"github.com/spyicydev/macblock/internal/fsatomic"
)

const plistFileMode = 0o644

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{range .Args}}		<string>{{.}}</string>
{{end}}	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrPath}}</string>
{{if .UserName}}	<key>UserName</key>
	<string>{{.UserName}}</string>
{{end}}</dict>
</plist>
`))

// plistSpec is the data driving plistTemplate for one launchd manifest.
type plistSpec struct {
	Label      string
	Args       []string
	StdoutPath string
	StderrPath string
	UserName   string
}

func renderPlist(spec plistSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, spec); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "render launchd plist")
	}
	return buf.Bytes(), nil
}

// DaemonPlist renders the daemon's launchd manifest: runs macblockd as
// root (it needs to rewrite system DNS settings).
func DaemonPlist(binPath string) ([]byte, error) {
	return renderPlist(plistSpec{
		Label:      DaemonLabel,
		Args:       []string{binPath},
		StdoutPath: DaemonLogPath(),
		StderrPath: DaemonLogPath(),
	})
}

// ResolverPlist renders dnsmasq's launchd manifest: runs as the dedicated
// unprivileged user with the static config this package writes.
func ResolverPlist(dnsmasqBin string) ([]byte, error) {
	return renderPlist(plistSpec{
		Label:      ResolverLabel,
		Args:       []string{dnsmasqBin, "-k", "-C", DnsmasqConfPath()},
		StdoutPath: ResolverLogPath(),
		StderrPath: ResolverLogPath(),
	})
}

// WritePlists writes both manifests to LaunchDir atomically with the mode
// launchd requires (world-readable, not writable by non-root).
func WritePlists(binPath, dnsmasqBin string) error {
	daemon, err := DaemonPlist(binPath)
	if err != nil {
		return err
	}
	if err := fsatomic.WriteFile(DaemonPlistPath(), daemon, plistFileMode); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write daemon plist")
	}

	resolver, err := ResolverPlist(dnsmasqBin)
	if err != nil {
		return err
	}
	if err := fsatomic.WriteFile(ResolverPlistPath(), resolver, plistFileMode); err != nil {
		return errors.Wrap(err, errors.KindTransientIO, "write resolver plist")
	}

	return nil
}
