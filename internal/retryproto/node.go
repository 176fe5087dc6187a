// Package retryproto implements the media-retry signaling protocol:
// building and decoding the binary node trees WhatsApp
// exchanges to re-request vanished media, and the AES-256-GCM receipt
// encryption that rides inside them. The Node shape is grounded on
// go-whatsapp's binary.Node{Description, Attributes, Content}, renamed
// here to the field names this module uses elsewhere (Tag/Attrs/Children).
package retryproto

import "strings"

// Node is a minimal binary node tree element: a tag, a flat attribute map,
// and an ordered list of child nodes. The signaling layer this package
// participates in is responsible for the wire encoding/decoding of Node
// trees; retryproto only builds and reads them.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Children []Node
}

// Child returns the first direct child with the given tag, or nil.
func (n Node) Child(tag string) *Node {
	for i := range n.Children {
		if n.Children[i].Tag == tag {
			return &n.Children[i]
		}
	}
	return nil
}

// NormalizeJID strips a JID's device/agent suffix ("1234:5@s.whatsapp.net"
// -> "1234@s.whatsapp.net"), matching the normalization WhatsApp clients
// apply before addressing a receipt "to" a peer.
func NormalizeJID(jid string) string {
	at := strings.IndexByte(jid, '@')
	if at < 0 {
		return jid
	}
	user, server := jid[:at], jid[at:]
	if colon := strings.IndexByte(user, ':'); colon >= 0 {
		user = user[:colon]
	}
	return user + server
}
