package newsletter

import (
	"fmt"

	"github.com/shaharia-lab/newsletter/binary"
)

// UpdateVariant selects where the items live in a response tree.
type UpdateVariant int

const (
	// DirectMessages reads <messages> under the root; items are encrypted
	// and run through the Decrypter.
	DirectMessages UpdateVariant = iota + 1
	// NestedUpdates reads <message_updates><messages>; items carry counts
	// and reactions only.
	NestedUpdates
)

func (v UpdateVariant) String() string {
	switch v {
	case DirectMessages:
		return "messages"
	case NestedUpdates:
		return "updates"
	default:
		return fmt.Sprintf("UpdateVariant(%d)", int(v))
	}
}

// decryptRequired reports whether items of this variant carry an encrypted payload.
func (v UpdateVariant) decryptRequired() bool {
	return v == DirectMessages
}

// container returns the node holding the items, or nil when the response
// has no such section.
func (v UpdateVariant) container(root *binary.Node) (*binary.Node, error) {
	switch v {
	case DirectMessages:
		return binary.GetChild(root, "messages"), nil
	case NestedUpdates:
		return binary.GetChild(binary.GetChild(root, "message_updates"), "messages"), nil
	default:
		return nil, fmt.Errorf("newsletter: unknown update variant %d", int(v))
	}
}

// SelectItems returns the item nodes of root for variant, each annotated
// with the container's jid as its "from" attribute. A missing section is
// not an error and yields an empty slice.
func SelectItems(root *binary.Node, variant UpdateVariant) ([]*binary.Node, error) {
	container, err := variant.container(root)
	if err != nil {
		return nil, err
	}
	items := binary.GetAllChildren(container)
	from := container.Attr("jid")
	for _, item := range items {
		item.SetAttr("from", from)
	}
	return items, nil
}
