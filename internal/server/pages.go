package server

import (
	"html/template"
	"net/http"

	"github.com/parlor-chat/parlor/internal/room"
)

type homeData struct {
	Error string
	Name  string
	Code  string
}

type roomData struct {
	Code     string
	Name     string
	Messages []room.Message
}

var homeTmpl = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Parlor</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px auto; max-width: 480px; }
        input[type="text"] { width: 100%; padding: 8px; margin: 4px 0 12px; box-sizing: border-box; }
        button { padding: 8px 16px; background-color: #007cba; color: white; border: none; cursor: pointer; margin-right: 8px; }
        button:hover { background-color: #005a87; }
        .error { color: #721c24; background-color: #f8d7da; padding: 8px; margin-bottom: 12px; }
    </style>
</head>
<body>
    <h1>Parlor</h1>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form method="post" action="/">
        <label>Name</label>
        <input type="text" name="name" placeholder="Pick a name" value="{{.Name}}">
        <label>Room code</label>
        <input type="text" name="code" placeholder="4-letter code" value="{{.Code}}">
        <button type="submit" name="action" value="join">Join a Room</button>
        <button type="submit" name="action" value="create">Create a Room</button>
    </form>
</body>
</html>`))

var roomTmpl = template.Must(template.New("room").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Parlor &mdash; {{.Code}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px auto; max-width: 640px; }
        #messages { border: 1px solid #ccc; height: 320px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        .notice { color: gray; font-style: italic; }
        input[type="text"] { width: 75%; padding: 8px; }
        button { padding: 8px 16px; background-color: #007cba; color: white; border: none; cursor: pointer; }
    </style>
</head>
<body>
    <h1>Room {{.Code}}</h1>
    <div id="messages">
        {{range .Messages}}<div><strong>{{.Sender}}:</strong> {{.Body}}</div>
        {{end}}
    </div>
    <input type="text" id="input" placeholder="Say something...">
    <button onclick="sendMessage()">Send</button>

    <script>
        const messagesDiv = document.getElementById('messages');
        const input = document.getElementById('input');
        const scheme = location.protocol === 'https:' ? 'wss' : 'ws';
        const ws = new WebSocket(scheme + '://' + location.host + '/ws');

        ws.onmessage = function(event) {
            const msg = JSON.parse(event.data);
            const div = document.createElement('div');
            if (msg.kind === 'join' || msg.kind === 'leave') {
                div.className = 'notice';
                div.textContent = msg.name + ' ' + msg.message;
            } else {
                const who = document.createElement('strong');
                who.textContent = msg.name + ': ';
                div.appendChild(who);
                div.appendChild(document.createTextNode(msg.message));
            }
            messagesDiv.appendChild(div);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        };

        function sendMessage() {
            const text = input.value.trim();
            if (text && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({data: text}));
                input.value = '';
            }
        }

        input.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`))

func (h *Handler) renderHome(w http.ResponseWriter, data homeData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTmpl.Execute(w, data); err != nil {
		h.log.Error().Err(err).Msg("rendering home page")
	}
}

func (h *Handler) renderRoom(w http.ResponseWriter, data roomData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := roomTmpl.Execute(w, data); err != nil {
		h.log.Error().Err(err).Msg("rendering room page")
	}
}
