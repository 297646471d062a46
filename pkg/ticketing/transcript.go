package ticketing

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/entities"
)

// htmlEscaper neutralises the five characters that would allow message content
// to inject markup into the rendered transcript.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

func escapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// initials derives the two-letter avatar initials from a username.
func initials(username string) string {
	r := []rune(username)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

const transcriptHead = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Ticket Transcript #%d</title>
  <style>
    body {
      font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
      background-color: #36393f;
      color: #dcddde;
      margin: 0;
      padding: 20px;
    }
    .container {
      max-width: 900px;
      margin: 0 auto;
      background-color: #2f3136;
      border-radius: 8px;
      padding: 20px;
      box-shadow: 0 0 10px rgba(0, 0, 0, 0.5);
    }
    .header {
      border-bottom: 2px solid #202225;
      padding-bottom: 15px;
      margin-bottom: 20px;
    }
    .header h1 {
      margin: 0 0 5px 0;
      color: #fff;
      font-size: 24px;
    }
    .header p {
      margin: 5px 0;
      color: #99aab5;
      font-size: 14px;
    }
    .messages {
      display: flex;
      flex-direction: column;
      gap: 10px;
    }
    .message {
      display: flex;
      gap: 12px;
      padding: 8px 0;
    }
    .avatar {
      width: 40px;
      height: 40px;
      border-radius: 50%%;
      background-color: #5865f2;
      display: flex;
      align-items: center;
      justify-content: center;
      font-weight: bold;
      color: white;
      font-size: 14px;
      flex-shrink: 0;
    }
    .message-content {
      flex: 1;
    }
    .message-author {
      display: flex;
      align-items: baseline;
      gap: 8px;
      margin-bottom: 4px;
    }
    .author-name {
      font-weight: 600;
      color: #fff;
    }
    .message-time {
      color: #72767d;
      font-size: 12px;
    }
    .message-text {
      color: #dcddde;
      line-height: 1.5;
      word-wrap: break-word;
    }
    .system-message {
      color: #72767d;
      font-style: italic;
      font-size: 13px;
      padding: 8px 12px;
      background-color: #36393f;
      border-radius: 4px;
      margin: 5px 0;
    }
    .footer {
      border-top: 2px solid #202225;
      padding-top: 15px;
      margin-top: 20px;
      text-align: center;
      color: #72767d;
      font-size: 12px;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Support Ticket Transcript</h1>
      <p><strong>Ticket ID:</strong> #%d</p>
      <p><strong>User:</strong> %s</p>
      <p><strong>Channel:</strong> #%s</p>
      <p><strong>Created:</strong> %s</p>
    </div>
    <div class="messages">`

// RenderTranscript renders a closed ticket's message history as a
// self-contained HTML document. Messages arrive newest first, as fetched, and
// are rendered oldest first; messages authored by the bot are skipped. The
// output is deterministic for a given message window, differing only in the
// generation-time footer.
func RenderTranscript(ticket *entities.Ticket, channelName string, msgs []*discordgo.Message, botUserID string, generatedAt time.Time) string {
	var sb strings.Builder

	created := time.Time(ticket.CreatedAt).UTC().Format("2006-01-02 15:04:05 UTC")
	sb.WriteString(fmt.Sprintf(transcriptHead,
		ticket.ID, ticket.ID, escapeHTML(ticket.CreatorName), escapeHTML(channelName), created))

	for idx := len(msgs) - 1; idx >= 0; idx-- {
		msg := msgs[idx]
		if msg.Author == nil || msg.Author.Bot || msg.Author.ID == botUserID {
			continue
		}

		sb.WriteString(fmt.Sprintf(`
      <div class="message">
        <div class="avatar">%s</div>
        <div class="message-content">
          <div class="message-author">
            <span class="author-name">%s</span>
            <span class="message-time">%s</span>
          </div>
          <div class="message-text">%s</div>`,
			escapeHTML(initials(msg.Author.Username)),
			escapeHTML(msg.Author.Username),
			msg.Timestamp.UTC().Format("15:04:05"),
			escapeHTML(msg.Content)))

		for _, embed := range msg.Embeds {
			title := embed.Title
			if title == "" {
				title = "Embedded Content"
			}
			sb.WriteString(fmt.Sprintf(`<div class="system-message">[Embed: %s]</div>`, escapeHTML(title)))
		}

		sb.WriteString(`</div></div>`)
	}

	sb.WriteString(fmt.Sprintf(`
    </div>
    <div class="footer">
      <p>Transcript generated on %s</p>
    </div>
  </div>
</body>
</html>`, generatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	return sb.String()
}

// TranscriptFileName is the attachment name used for a ticket's transcript.
func TranscriptFileName(ticketID int) string {
	return fmt.Sprintf("ticket-%d-transcript.html", ticketID)
}
