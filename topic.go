package inspector

import (
	"strings"
)

// TopicFromScopedName builds a transport topic from the entity's prefixed
// scoped name, e.g. "/world/default/model/box". With excludeWorld the
// leading world scope is dropped; a world itself then maps to "".
func TopicFromScopedName(ecs *Ecs, e EntityId, excludeWorld bool) string {
	topic := ScopedName(ecs, e, "/", true)

	if excludeWorld {
		if HasComponent[WorldTag](ecs, e) {
			topic = ""
		} else {
			topic = RemoveParentScope(RemoveParentScope(topic, "/"), "/")
		}
	}

	return AsValidTopic("/" + topic)
}

// ValidTopic returns the first candidate that can be turned into a valid
// topic, or "".
func ValidTopic(topics []string) string {
	for _, topic := range topics {
		valid := AsValidTopic(topic)
		if valid == "" {
			pkgLog().Errorf("topic [%s] is invalid, ignoring", topic)
			continue
		}
		if valid != topic {
			pkgLog().Debugf("topic [%s] changed to valid topic [%s]", topic, valid)
		}
		return valid
	}
	return ""
}

var topicReplacer = strings.NewReplacer(
	" ", "_",
	"@", "",
	"~", "",
	"#", "",
	"?", "",
	":=", "",
)

// AsValidTopic rewrites a candidate into a valid topic: spaces become
// underscores, reserved characters are dropped, repeated slashes collapse
// and a trailing slash is removed. Returns "" when nothing valid remains.
func AsValidTopic(topic string) string {
	valid := topicReplacer.Replace(strings.TrimSpace(topic))
	for strings.Contains(valid, "//") {
		valid = strings.ReplaceAll(valid, "//", "/")
	}
	if len(valid) > 1 {
		valid = strings.TrimSuffix(valid, "/")
	}
	if valid == "" || valid == "/" {
		return ""
	}
	return valid
}
