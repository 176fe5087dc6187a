package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/retryproto"
)

// newRetryCmd creates the 'retry-request' command.
func newRetryCmd() *cobra.Command {
	var msgID string
	var mediaKeyB64 string
	var remoteJID string
	var meJID string
	var fromMe bool
	var participant string

	cmd := &cobra.Command{
		Use:   "retry-request",
		Short: "Build a media-retry 'receipt' node for a vanished media message",
		Long: `Builds the AES-256-GCM-encrypted media-retry receipt node
a client sends to ask a peer to re-upload media. Prints the node as JSON;
actual binary-node wire encoding is the signaling layer's job, outside this
module's scope.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaKey, err := base64.StdEncoding.DecodeString(mediaKeyB64)
			if err != nil {
				return fmt.Errorf("decoding --media-key: %w", err)
			}

			key := retryproto.MessageKey{
				ID:          msgID,
				RemoteJID:   remoteJID,
				FromMe:      fromMe,
				Participant: participant,
			}

			node, err := retryproto.EncryptRetryRequest(key, mediaKey, meJID)
			if err != nil {
				return fmt.Errorf("retry-request: %w", err)
			}

			encoded, err := json.MarshalIndent(nodeToJSON(node), "", "  ")
			if err != nil {
				return fmt.Errorf("encoding node: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&msgID, "msg-id", "", "stanza id of the vanished message (required)")
	cmd.Flags().StringVar(&mediaKeyB64, "media-key", "", "base64-encoded 32-byte media key (required)")
	cmd.Flags().StringVar(&remoteJID, "remote-jid", "", "chat jid the message belongs to (required)")
	cmd.Flags().StringVar(&meJID, "me-jid", "", "our own jid, placed in the receipt's 'to' attribute (required)")
	cmd.Flags().BoolVar(&fromMe, "from-me", false, "whether the vanished message was sent by us")
	cmd.Flags().StringVar(&participant, "participant", "", "group participant jid, if the chat is a group")
	cmd.MarkFlagRequired("msg-id")
	cmd.MarkFlagRequired("media-key")
	cmd.MarkFlagRequired("remote-jid")
	cmd.MarkFlagRequired("me-jid")

	return cmd
}

// jsonNode is retryproto.Node reshaped for human-readable JSON output;
// enc_p/enc_iv are base64 since they're opaque binary payloads.
type jsonNode struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []jsonNode        `json:"children,omitempty"`
}

func nodeToJSON(n retryproto.Node) jsonNode {
	out := jsonNode{Tag: n.Tag, Attrs: map[string]string{}}
	for k, v := range n.Attrs {
		if k == "enc_p" || k == "enc_iv" {
			out.Attrs[k] = base64.StdEncoding.EncodeToString([]byte(v))
		} else {
			out.Attrs[k] = v
		}
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, nodeToJSON(c))
	}
	return out
}
