package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/Dan9191/bank-cards/internal/models"
)

// BuildCardRegister renders masked card projections as a <CardRegister> document
func BuildCardRegister(cards []models.CardView, generatedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("CardRegister")
	root.CreateAttr("generatedAt", generatedAt.UTC().Format(time.RFC3339))
	root.CreateAttr("count", strconv.Itoa(len(cards)))

	for _, c := range cards {
		el := root.CreateElement("Card")
		el.CreateAttr("id", strconv.FormatInt(c.ID, 10))
		el.CreateAttr("userId", strconv.FormatInt(c.UserID, 10))
		el.CreateElement("Number").SetText(c.CardNumber)
		el.CreateElement("Holder").SetText(c.HolderName)
		el.CreateElement("ExpirationDate").SetText(c.ExpirationDate)
		el.CreateElement("Status").SetText(c.Status.String())
		el.CreateElement("Balance").SetText(c.Balance.StringFixed(2))
	}

	doc.Indent(2)
	return doc
}

// WriteCardRegister writes the register document to w
func WriteCardRegister(w io.Writer, cards []models.CardView, generatedAt time.Time) error {
	if _, err := BuildCardRegister(cards, generatedAt).WriteTo(w); err != nil {
		return fmt.Errorf("failed to write card register: %w", err)
	}
	return nil
}
