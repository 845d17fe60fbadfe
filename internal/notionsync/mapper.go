package notionsync

import (
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the Notion transactions database.
const (
	PropDescription = "Description"
	PropRecordID    = "Transaction ID"
	PropDate        = "Date"
	PropType        = "Type"
	PropCategory    = "Category"
	PropAmount      = "Amount"
	PropUpload      = "Upload"
)

const untitled = "Sem descrição"

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// RecordToProperties maps a stored transaction onto the database columns.
// Dates that are not DD/MM/YYYY are left out.
func RecordToProperties(rec domain.TransactionRecord) notionapi.Properties {
	title := rec.Description
	if title == "" {
		title = untitled
	}
	amount, _ := rec.Amount.Float64()

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{Title: richText(title)},
		PropRecordID:    notionapi.RichTextProperty{RichText: richText(rec.ID)},
		PropAmount:      notionapi.NumberProperty{Number: amount},
	}

	if t, err := time.Parse("02/01/2006", rec.Date); err == nil {
		d := notionapi.Date(t)
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}
	if rec.Type != "" {
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: rec.Type}}
	}
	if rec.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: rec.Category}}
	}
	if rec.BatchID != "" {
		props[PropUpload] = notionapi.RichTextProperty{RichText: richText(rec.BatchID)}
	}
	return props
}

// recordID reads the transaction id back from a page, or "" when the page
// was not created by the sync.
func recordID(page notionapi.Page) string {
	prop, ok := page.Properties[PropRecordID]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
