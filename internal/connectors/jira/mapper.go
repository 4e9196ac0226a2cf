package jira

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hub-connectors/pkg/card"
)

const (
	// maxCardComments is how many of the newest comments are shown on a card.
	maxCardComments = 3

	actionComment = "comment"
	actionWatch   = "watch"
)

var importantPriorities = map[string]bool{
	"highest":  true,
	"high":     true,
	"critical": true,
	"blocker":  true,
}

// issueCard maps one Jira issue onto a card.
func (c *Connector) issueCard(issue *Issue, now time.Time) *card.Card {
	f := issue.Fields

	header := card.NewHeaderBuilder().SetTitle(fmt.Sprintf("[%s] %s", issue.Key, f.Summary))
	if f.Project != nil && f.Project.Name != "" {
		header.AddSubtitle(f.Project.Name)
	}
	if f.Status != nil && f.Status.Name != "" {
		header.AddSubtitle(f.Status.Name)
	}

	b := card.NewBuilder().
		SetName(Name).
		SetCreationDate(now).
		SetHeader(header.Build()).
		SetBody(c.issueBody(issue)).
		AddAction(c.commentAction(issue.Key), c.watchAction(issue.Key)).
		AddLinks(card.NewOpenInLinkBuilder().
			SetHref(c.browseURL(issue.Key)).
			SetText("Open in Jira").
			Build())

	if c.cfg.ImageURL != "" {
		b.SetImage(card.NewLink(c.cfg.ImageURL))
	}
	if c.cfg.CardTTL > 0 {
		b.SetExpirationDate(now.Add(c.cfg.CardTTL))
	}
	if f.Priority != nil && importantPriorities[strings.ToLower(f.Priority.Name)] {
		b.SetImportance(1)
	}
	if len(f.Labels) > 0 {
		b.AddTag(f.Labels...)
	}
	return b.Build()
}

func (c *Connector) issueBody(issue *Issue) *card.Body {
	f := issue.Fields
	body := card.NewBodyBuilder()
	if text := documentText(f.Description); text != "" {
		body.SetDescription(text)
	}

	general := func(title, value string) {
		if value == "" {
			return
		}
		body.AddField(card.NewBodyFieldBuilder().
			SetType(card.FieldTypeGeneral).
			SetTitle(title).
			SetDescription(value).
			Build())
	}

	general("Reporter", userName(f.Reporter))
	general("Assignee", userName(f.Assignee))
	if f.Priority != nil {
		general("Priority", f.Priority.Name)
	}
	if f.IssueType != nil {
		general("Type", f.IssueType.Name)
	}
	general("Labels", strings.Join(f.Labels, ", "))

	if comments := recentComments(f.Comment); len(comments) > 0 {
		field := card.NewBodyFieldBuilder().
			SetType(card.FieldTypeComment).
			SetTitle("Comments")
		for _, cm := range comments {
			author := userName(cm.Author)
			text := documentText(cm.Body)
			item := card.NewBodyFieldItemBuilder().
				SetType(card.ItemTypeGeneral).
				SetDescription(text)
			if author != "" {
				item.SetTitle(author)
			}
			field.AddItem(item.Build())

			content := map[string]string{"text": text}
			if author != "" {
				content["author"] = author
			}
			if created := parseJiraTime(cm.Created); created != nil {
				content["created"] = created.UTC().Format(time.RFC3339)
			}
			field.AddContent(content)
		}
		body.AddField(field.Build())
	}

	return body.Build()
}

func (c *Connector) commentAction(key string) *card.Action {
	return card.NewActionBuilder().
		SetActionKey(card.ActionKeyUserInput).
		SetLabel("Comment").
		SetCompletedLabel("Commented").
		SetType(http.MethodPost).
		SetURL(card.NewLink(c.actionURL(key, actionComment))).
		AddUserInput(card.NewActionInputFieldBuilder().
			SetID("comment").
			SetLabel("Comment").
			SetFormat("textarea").
			SetMinLength(1).
			Build()).
		Build()
}

func (c *Connector) watchAction(key string) *card.Action {
	return card.NewActionBuilder().
		SetActionKey(card.ActionKeyDirect).
		SetLabel("Watch").
		SetCompletedLabel("Watching").
		SetPrimary(true).
		SetType(http.MethodPost).
		SetURL(card.NewLink(c.actionURL(key, actionWatch))).
		Build()
}

func (c *Connector) actionURL(key, action string) string {
	path := fmt.Sprintf("/api/v1/issues/%s/%s", url.PathEscape(key), action)
	return strings.TrimRight(c.cfg.ActionBaseURL, "/") + path
}

func (c *Connector) browseURL(key string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/browse/" + url.PathEscape(key)
}

func userName(u *User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.EmailAddress
}

// recentComments returns up to maxCardComments of the newest comments, newest
// first. Jira returns comments oldest first.
func recentComments(page *CommentsPage) []*Comment {
	if page == nil {
		return nil
	}
	out := make([]*Comment, 0, maxCardComments)
	for i := len(page.Comments) - 1; i >= 0 && len(out) < maxCardComments; i-- {
		if page.Comments[i] != nil {
			out = append(out, page.Comments[i])
		}
	}
	return out
}
