// Copyright (C) 2026 vpnwarden Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//

// Package transport carries the core's updates and notices over the
// Telegram Bot API using plain long polling.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/PurpleSec/logx"
	"vpnwarden"
	"vpnwarden/xerr"
)

// Long poll wait and the per-call request timeout on top of it.
const (
	pollWait    = 50
	callTimeout = 75 * time.Second
)

// Telegram implements both the update source and the delivery sink of the
// core over a single bot token.
type Telegram struct {
	Log    logx.Log
	Client *http.Client
	Token  string
	API    string
	offset int64
}
type tgUser struct {
	Username string `json:"username"`
	First    string `json:"first_name"`
	Last     string `json:"last_name"`
	ID       int64  `json:"id"`
}
type tgChat struct {
	ID int64 `json:"id"`
}
type tgMessage struct {
	From *tgUser `json:"from"`
	Text string  `json:"text"`
	Chat tgChat  `json:"chat"`
}
type tgCallback struct {
	ID      string     `json:"id"`
	Data    string     `json:"data"`
	Message *tgMessage `json:"message"`
	From    tgUser     `json:"from"`
}
type tgUpdate struct {
	Message  *tgMessage  `json:"message"`
	Callback *tgCallback `json:"callback_query"`
	ID       int64       `json:"update_id"`
}
type tgResponse struct {
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Ok          bool            `json:"ok"`
}

func (t *Telegram) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return &http.Client{Timeout: callTimeout}
}
func (t *Telegram) url(method string) string {
	a := t.API
	if len(a) == 0 {
		a = "https://api.telegram.org"
	}
	return a + "/bot" + t.Token + "/" + method
}

// Updates long polls the Bot API and converts incoming messages and button
// presses into core updates. The channel closes when the context ends.
func (t *Telegram) Updates(x context.Context) <-chan vpnwarden.Update {
	c := make(chan vpnwarden.Update, 32)
	go t.poll(x, c)
	return c
}
func (t *Telegram) poll(x context.Context, c chan<- vpnwarden.Update) {
	t.Log.Info("[transport] Starting long poll thread...")
	for {
		select {
		case <-x.Done():
			t.Log.Info("[transport] Stopping long poll thread.")
			close(c)
			return
		default:
		}
		v, err := t.fetch(x)
		if err != nil {
			if x.Err() != nil {
				continue
			}
			t.Log.Warning("[transport] Poll failed: %s!", err.Error())
			select {
			case <-x.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for i := range v {
			if v[i].ID >= t.offset {
				t.offset = v[i].ID + 1
			}
			u, ok := convert(v[i])
			if !ok {
				continue
			}
			select {
			case <-x.Done():
			case c <- u:
			}
		}
	}
}
func convert(v tgUpdate) (vpnwarden.Update, bool) {
	var u vpnwarden.Update
	switch {
	case v.Callback != nil:
		u.ID, u.Callback, u.CallbackID = v.Callback.From.ID, v.Callback.Data, v.Callback.ID
		u.First, u.Last, u.Username = v.Callback.From.First, v.Callback.From.Last, v.Callback.From.Username
		if u.Chat = u.ID; v.Callback.Message != nil {
			u.Chat = v.Callback.Message.Chat.ID
		}
	case v.Message != nil && v.Message.From != nil:
		u.ID, u.Chat, u.Text = v.Message.From.ID, v.Message.Chat.ID, v.Message.Text
		u.First, u.Last, u.Username = v.Message.From.First, v.Message.From.Last, v.Message.From.Username
	default:
		return u, false
	}
	return u, true
}
func (t *Telegram) fetch(x context.Context) ([]tgUpdate, error) {
	b, err := json.Marshal(map[string]any{
		"offset":          t.offset,
		"timeout":         pollWait,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}
	o, err := t.call(x, "getUpdates", "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var v []tgUpdate
	if err = json.Unmarshal(o, &v); err != nil {
		return nil, xerr.Wrap("could not parse updates", err)
	}
	return v, nil
}
func (t *Telegram) call(x context.Context, method, ctype string, body io.Reader) (json.RawMessage, error) {
	q, err := http.NewRequestWithContext(x, http.MethodPost, t.url(method), body)
	if err != nil {
		return nil, err
	}
	q.Header.Set("Content-Type", ctype)
	o, err := t.client().Do(q)
	if err != nil {
		return nil, err
	}
	d, err := io.ReadAll(io.LimitReader(o.Body, 1<<22))
	if o.Body.Close(); err != nil {
		return nil, err
	}
	var r tgResponse
	if err = json.Unmarshal(d, &r); err != nil {
		return nil, xerr.Wrap("could not parse response", err)
	}
	if !r.Ok {
		if len(r.Description) > 0 {
			return nil, xerr.New(method + ": " + r.Description)
		}
		return nil, xerr.New(method + ": request failed with status " + o.Status)
	}
	return r.Result, nil
}
func markup(m *vpnwarden.Menu) any {
	if m == nil || len(m.Rows) == 0 {
		return nil
	}
	k := make([][]map[string]string, 0, len(m.Rows))
	for _, r := range m.Rows {
		v := make([]map[string]string, 0, len(r))
		for _, b := range r {
			v = append(v, map[string]string{"text": b.Label, "callback_data": b.Action})
		}
		k = append(k, v)
	}
	return map[string]any{"inline_keyboard": k}
}

// Send delivers a text notice with an optional inline menu.
func (t *Telegram) Send(x context.Context, chat int64, text string, m *vpnwarden.Menu) error {
	p := map[string]any{"chat_id": chat, "text": text}
	if r := markup(m); r != nil {
		p["reply_markup"] = r
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = t.call(x, "sendMessage", "application/json", bytes.NewReader(b))
	return err
}

// SendFile uploads a document from the local filesystem under the supplied
// display name.
func (t *Telegram) SendFile(x context.Context, chat int64, path, name, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return xerr.Wrap(`could not open "`+path+`"`, err)
	}
	var (
		b bytes.Buffer
		w = multipart.NewWriter(&b)
	)
	w.WriteField("chat_id", strconv.FormatInt(chat, 10))
	if len(caption) > 0 {
		w.WriteField("caption", caption)
	}
	p, err := w.CreateFormFile("document", name)
	if err != nil {
		f.Close()
		return err
	}
	_, err = io.Copy(p, f)
	if f.Close(); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	_, err = t.call(x, "sendDocument", w.FormDataContentType(), &b)
	return err
}

// Alert answers a button press with a popup message.
func (t *Telegram) Alert(x context.Context, id, text string) error {
	b, err := json.Marshal(map[string]any{"callback_query_id": id, "text": text, "show_alert": true})
	if err != nil {
		return err
	}
	_, err = t.call(x, "answerCallbackQuery", "application/json", bytes.NewReader(b))
	return err
}

// Ack silently answers a button press so the client stops its spinner.
func (t *Telegram) Ack(x context.Context, id string) error {
	b, err := json.Marshal(map[string]any{"callback_query_id": id})
	if err != nil {
		return err
	}
	_, err = t.call(x, "answerCallbackQuery", "application/json", bytes.NewReader(b))
	return err
}
