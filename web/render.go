package web

import (
	"html/template"
	"io"

	"github.com/thewug/cakeraffle/roster"
)

// View is everything the page needs; it is derived from a Status and nothing else.
type View struct {
	Names     []string
	Count     int
	Winner    string
	CanDraw   bool
	CanReset  bool
	MaxLength int
}

func ViewOf(s Status) View {
	return View{
		Names:     s.Names,
		Count:     s.Count,
		Winner:    s.Winner,
		CanDraw:   s.CanDraw,
		CanReset:  s.CanReset,
		MaxLength: roster.MaxNameLength,
	}
}

func Render(w io.Writer, v View) error {
	return pageTemplate.Execute(w, v)
}

var pageTemplate = template.Must(template.New("rafflepage").Parse(
`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Cake Raffle</title>
<style>
body { font-family: sans-serif; max-width: 36em; margin: 2em auto; }
.participant-item { display: flex; justify-content: space-between; padding: 4px 8px; }
.empty-message { text-align: center; color: #999; font-style: italic; padding: 20px; }
.status-message { position: fixed; top: 20px; right: 20px; padding: 12px 20px; border-radius: 8px;
  color: white; font-weight: 600; z-index: 1000; animation: slideInRight 0.3s ease; }
.status-message.error { background: linear-gradient(to right, #ff416c, #ff4b2b); }
.status-message.success { background: linear-gradient(to right, #4CAF50, #2E7D32); }
.status-message.info { background: linear-gradient(to right, #007bff, #0056b3); }
.confetti { position: fixed; width: 10px; height: 10px; border-radius: 2px; top: -20px; z-index: 999; }
@keyframes slideInRight { from { transform: translateX(100%); opacity: 0; } to { transform: translateX(0); opacity: 1; } }
@keyframes confetti { to { transform: translateY(100vh) rotate(var(--spin)); opacity: 0; } }
</style></head>
<body>
<h1>Cake Raffle</h1>
<form id="entry-form">
<input id="name" name="name" maxlength="{{.MaxLength}}" autocomplete="off" autofocus>
<button type="submit">Add</button>
</form>
<h2>Participants <span id="participant-count">({{.Count}})</span></h2>
<div id="participants-list">
{{- range .Names}}
<div class="participant-item"><span>{{.}}</span><button class="remove-btn" data-name="{{.}}" title="Remove {{.}}">&times;</button></div>
{{- else}}
<div class="empty-message">No participants yet. Add some names above!</div>
{{- end}}
</div>
<button id="draw-button"{{if not .CanDraw}} disabled{{end}}>Draw a winner</button>
<button id="reset-button"{{if not .CanReset}} disabled{{end}}>Reset</button>
<div id="winner-display">{{if .Winner}}<p><strong>{{.Winner}}</strong><br>Wins the cake!</p>{{end}}</div>
<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  var $ = function (id) { return document.getElementById(id); };
  var send = function (msg) { ws.send(JSON.stringify(msg)); };

  function text(tag, value, cls) {
    var el = document.createElement(tag);
    el.textContent = value;
    if (cls) { el.className = cls; }
    return el;
  }

  function renderState(s) {
    var list = $("participants-list");
    list.replaceChildren();
    if (s.names.length === 0) {
      list.appendChild(text("div", "No participants yet. Add some names above!", "empty-message"));
    }
    s.names.forEach(function (name) {
      var item = document.createElement("div");
      item.className = "participant-item";
      item.appendChild(text("span", name));
      var btn = text("button", "×", "remove-btn");
      btn.dataset.name = name;
      btn.title = "Remove " + name;
      item.appendChild(btn);
      list.appendChild(item);
    });
    $("participant-count").textContent = "(" + s.count + ")";
    $("draw-button").disabled = !s.can_draw;
    $("reset-button").disabled = !s.can_reset;
    if (!s.busy) { renderWinner(s.winner); }
  }

  function renderWinner(winner) {
    var display = $("winner-display");
    display.replaceChildren();
    if (winner) {
      var p = document.createElement("p");
      p.appendChild(text("strong", winner));
      p.appendChild(document.createElement("br"));
      p.appendChild(document.createTextNode("Wins the cake!"));
      display.appendChild(p);
    }
  }

  function toast(kind, message) {
    var old = document.querySelector(".status-message");
    if (old) { old.remove(); }
    var el = text("div", message, "status-message " + kind);
    document.body.appendChild(el);
    setTimeout(function () { el.remove(); }, 3000);
  }

  function confetti(c) {
    c.pieces.forEach(function (p) {
      var el = document.createElement("div");
      el.className = "confetti";
      el.style.background = p.color;
      el.style.left = p.left + "vw";
      el.style.setProperty("--spin", p.spin + "deg");
      el.style.animation = "confetti " + p.duration + "s linear forwards";
      document.body.appendChild(el);
      setTimeout(function () { el.remove(); }, c.lifetime_ms);
    });
  }

  ws.onclose = function () {
    // the raffle hub went away (swept or restarted); a reload reattaches
    setTimeout(function () { location.reload(); }, 1000);
  };

  ws.onmessage = function (ev) {
    var m = JSON.parse(ev.data);
    switch (m.type) {
    case "state": renderState(m); break;
    case "notify": toast(m.kind, m.text); break;
    case "countdown": $("winner-display").replaceChildren(text("p", "Drawing in " + m.remaining + "...")); break;
    case "winner": renderWinner(m.winner); break;
    case "confetti": confetti(m); break;
    }
  };

  $("entry-form").addEventListener("submit", function (ev) {
    ev.preventDefault();
    send({ type: "add", name: $("name").value });
    $("name").value = "";
    $("name").focus();
  });
  $("participants-list").addEventListener("click", function (ev) {
    if (ev.target.classList.contains("remove-btn")) {
      send({ type: "remove", name: ev.target.dataset.name });
    }
  });
  $("draw-button").addEventListener("click", function () { send({ type: "draw" }); });
  $("reset-button").addEventListener("click", function () {
    if (confirm("Are you sure you want to reset the raffle? This will clear all participants and the winner.")) {
      send({ type: "reset" });
    }
  });
})();
</script>
</body></html>`,
))
