package secretstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// The rest-proxy aggregate secret holds two files consumed by the Kafka REST
// proxy: a basic-auth user list and a JAAS config with one PlainLoginModule
// entry per API key.
const (
	BasicFileKey = "basic.txt"
	JAASFileKey  = "restProxyUsers.jaas"

	basicUserSuffix = "krp-users"
	jaasLoginModule = "org.apache.kafka.common.security.plain.PlainLoginModule required"
)

// jaasDefaultPrepend seeds a brand new JAAS blob. The KafkaRest section
// points the proxy at the basic-auth file; KafkaClient collects the per-key
// login modules.
const jaasDefaultPrepend = `KafkaRest {
    org.eclipse.jetty.jaas.spi.PropertyFileLoginModule required
    debug="true"
    file="/mnt/secrets/rest-proxy-users/basic.txt";
};

`

var jaasQuoted = regexp.MustCompile(`"(.*?)"`)

func renderBasicUser(key, secret string) string {
	return fmt.Sprintf("%s: %s,%s", key, secret, basicUserSuffix)
}

// ParseBasicUsers reads the basic.txt blob into a key to secret map.
func ParseBasicUsers(blob string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entry, _, _ := strings.Cut(line, ","+basicUserSuffix)
		key, value, found := strings.Cut(entry, ":")
		if !found {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

// MergeBasicUser folds one API key into the basic.txt blob. It reports
// whether the blob changed: an identical existing entry is left alone, a
// stale secret is replaced, a missing key is appended.
func MergeBasicUser(blob, key, secret string) (bool, string) {
	users := ParseBasicUsers(blob)
	if existing, ok := users[key]; ok && existing == secret {
		return false, blob
	}
	users[key] = secret

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, renderBasicUser(name, users[name]))
	}
	return true, strings.Join(lines, "\n")
}

func renderJAASUser(key, secret string) string {
	return fmt.Sprintf("  %s\n  username=%q\n  password=%q;\n\n", jaasLoginModule, key, secret)
}

// ParseJAASUsers splits the JAAS blob into the section preceding the
// KafkaClient block and a key to secret map of its login modules.
func ParseJAASUsers(blob string) (prepend string, users map[string]string) {
	users = map[string]string{}
	if blob == "" {
		return jaasDefaultPrepend + "KafkaClient {\n", users
	}
	before, after, _ := strings.Cut(blob, "KafkaClient")
	entries := strings.Split(after, jaasLoginModule)
	if len(entries) > 0 {
		entries = entries[1:]
	}
	for _, entry := range entries {
		pair := jaasQuoted.FindAllStringSubmatch(entry, 2)
		if len(pair) == 2 {
			users[pair[0][1]] = pair[1][1]
		}
	}
	return before + "KafkaClient {\n", users
}

// MergeJAASUser folds one API key into the JAAS blob, reporting whether the
// blob changed.
func MergeJAASUser(blob, key, secret string) (bool, string) {
	prepend, users := ParseJAASUsers(blob)
	if existing, ok := users[key]; ok && existing == secret {
		return false, blob
	}
	users[key] = secret

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prepend)
	for _, name := range names {
		b.WriteString(renderJAASUser(name, users[name]))
	}
	b.WriteString("};\n")
	return true, b.String()
}
