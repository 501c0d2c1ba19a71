package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/academia/fs"
)

var (
	templates    tmplCache
	templatesErr error
	tmplInit     sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// SiteData is exposed to every e-mail template.
	SiteData struct {
		AppName         string
		FrontendBaseURL string
	}

	ContextData struct {
		SiteData
		Data interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from BodyStr or the named templates.
func (m *EmailMessage) Render(site SiteData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates) // only parse once
	if templatesErr != nil {
		return templatesErr
	}
	entry, ok := templates[m.TemplateName]
	if !ok {
		return errors.Errorf("core.EmailMessage.Render: unknown template %q", m.TemplateName)
	}
	data := ContextData{SiteData: site, Data: m.TemplateData}

	var buff bytes.Buffer
	if entry.text != nil && m.TextContent == "" {
		if err := entry.text.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "core.EmailMessage.Render")
		}
		m.TextContent = buff.String()
	}
	if entry.html != nil {
		buff.Reset()
		if err := entry.html.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "core.EmailMessage.Render")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() {
	templates = make(tmplCache)

	fps, err := fs.Glob(appfs.FS, path.Join(appfs.EmailTemplatesDir, "*"))
	if err != nil {
		templatesErr = errors.Wrap(err, "core.parseTemplates")
		return
	}
	textBase := path.Join(appfs.EmailTemplatesDir, "_base.txt")
	htmlBase := path.Join(appfs.EmailTemplatesDir, "_base.gohtml")

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, textBase, fp)
			if err != nil {
				templatesErr = errors.Wrap(err, "core.parseTemplates")
				return
			}
			entry.text = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, htmlBase, fp)
			if err != nil {
				templatesErr = errors.Wrap(err, "core.parseTemplates")
				return
			}
			entry.html = tmpl.Option("missingkey=error")
		}
	}
}
