package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"guest_tracker/codes"
	"guest_tracker/models"
)

//go:embed templates/*
var templateFS embed.FS

const dateLayout = "Monday, January 2, 2006 at 3:04 PM"

// Composer 渲染邮件正文；BaseURL 用于拼 RSVP 链接
type Composer struct {
	AppName string
	BaseURL string

	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewComposer(appName, baseURL string) (*Composer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Composer{AppName: appName, BaseURL: baseURL, html: h, text: t}, nil
}

type invitationView struct {
	AppName         string
	GuestName       string
	EventName       string
	Description     string
	Location        string
	When            string
	Deadline        string
	PersonalMessage string
	RSVPURL         string
	BarcodeNumber   string
	QRName          string
	BarcodeName     string
	Reminder        bool
}

func (c *Composer) RSVPURL(code string) string {
	return c.BaseURL + "/rsvp/" + code
}

func (c *Composer) view(inv *models.Invitation, reminder bool) invitationView {
	v := invitationView{
		AppName:         c.AppName,
		GuestName:       inv.Guest.FullName(),
		EventName:       inv.Event.Name,
		Description:     inv.Event.Description,
		Location:        inv.Event.Location,
		When:            inv.Event.Date.Format(dateLayout),
		PersonalMessage: inv.PersonalMessage,
		RSVPURL:         c.RSVPURL(inv.UniqueCode),
		BarcodeNumber:   inv.BarcodeNumber,
		QRName:          fmt.Sprintf("qr-%d@guesttracker", inv.ID),
		BarcodeName:     fmt.Sprintf("barcode-%d@guesttracker", inv.ID),
		Reminder:        reminder,
	}
	if inv.Event.RSVPDeadline != nil {
		v.Deadline = inv.Event.RSVPDeadline.Format(dateLayout)
	}
	return v
}

func (c *Composer) render(htmlName, textName string, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := c.html.ExecuteTemplate(&hb, htmlName, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", htmlName, err)
	}
	if textName != "" {
		if err := c.text.ExecuteTemplate(&tb, textName, data); err != nil {
			return "", "", fmt.Errorf("render %s: %w", textName, err)
		}
	}
	return hb.String(), tb.String(), nil
}

// Invitation 需要预加载 Event 和 Guest
func (c *Composer) Invitation(inv *models.Invitation) (Message, error) {
	v := c.view(inv, false)
	html, text, err := c.render("invitation.html", "invitation.txt", v)
	if err != nil {
		return Message{}, err
	}
	qr, err := codes.QRPNG(v.RSVPURL, codes.QRSize)
	if err != nil {
		return Message{}, err
	}
	bc, err := codes.Code128PNG(inv.BarcodeNumber, codes.BarcodeWidth, codes.BarcodeHeight)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      inv.Guest.Email,
		Subject: fmt.Sprintf("You're invited to %s!", inv.Event.Name),
		HTML:    html,
		Text:    text,
		Inline:  []Inline{{Name: v.QRName, Data: qr}, {Name: v.BarcodeName, Data: bc}},
	}, nil
}

func (c *Composer) Reminder(inv *models.Invitation) (Message, error) {
	v := c.view(inv, true)
	html, text, err := c.render("reminder.html", "invitation.txt", v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      inv.Guest.Email,
		Subject: fmt.Sprintf("Reminder: please reply to %s", inv.Event.Name),
		HTML:    html,
		Text:    text,
	}, nil
}

func (c *Composer) StaffInvite(email, link string, staff bool, expiresDays int) (Message, error) {
	data := struct {
		AppName     string
		Link        string
		Staff       bool
		ExpiresDays int
	}{c.AppName, link, staff, expiresDays}
	html, _, err := c.render("staff_invite.html", "", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      email,
		Subject: "Your invitation to " + c.AppName,
		HTML:    html,
		Text:    fmt.Sprintf("You have been invited to %s. Open %s to register your passkey.", c.AppName, link),
	}, nil
}
