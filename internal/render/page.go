package render

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// PageOptions configures the viewer page.
type PageOptions struct {
	Title string
	// SocketPath is the websocket endpoint, relative to the page origin.
	SocketPath string
	// PointerInterval throttles pointer messages, in milliseconds.
	PointerInterval int
	Background      string
	// Nonce is echoed on the inline style and script for a
	// Content-Security-Policy that forbids other inline code.
	Nonce string
}

// DefaultPageOptions returns the options served at "/".
func DefaultPageOptions() PageOptions {
	return PageOptions{
		Title:           "techviz",
		SocketPath:      "/ws",
		PointerInterval: 16,
		Background:      Background,
	}
}

// Page renders the full-screen viewer. The canvas client connects to
// SocketPath, draws every frame it receives and reports pointer and resize
// events back to the server.
func Page(opts PageOptions) templ.Component {
	if opts.SocketPath == "" {
		opts.SocketPath = "/ws"
	}
	if opts.PointerInterval <= 0 {
		opts.PointerInterval = 16
	}
	if opts.Background == "" {
		opts.Background = Background
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		s := &errWriter{w: w}
		s.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		s.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		s.printf(`<title>%s</title>`, templ.EscapeString(opts.Title))
		nonce := ""
		if opts.Nonce != "" {
			nonce = ` nonce="` + templ.EscapeString(opts.Nonce) + `"`
		}
		s.printf(`<style%s>html,body{margin:0;height:100%%;overflow:hidden;background:%s}canvas{display:block;width:100vw;height:100vh}</style>`,
			nonce, templ.EscapeString(opts.Background))
		s.printf(`</head><body>`)
		s.printf(`<canvas id="techviz" data-socket="%s" data-pointer-interval="%d" aria-label="%s" role="img"></canvas>`,
			templ.EscapeString(opts.SocketPath), opts.PointerInterval, templ.EscapeString(opts.Title))
		s.printf(`<script%s>%s</script>`, nonce, clientScript)
		s.printf(`</body></html>`)
		return s.err
	})
}

const clientScript = `(function () {
  "use strict";
  var canvas = document.getElementById("techviz");
  var ctx = canvas.getContext("2d");
  var interval = parseInt(canvas.dataset.pointerInterval, 10) || 16;
  var socket = null;
  var frame = null;
  var lastPointer = 0;
  var retry = 500;

  function socketURL() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    return scheme + location.host + canvas.dataset.socket;
  }

  function send(msg) {
    if (socket && socket.readyState === WebSocket.OPEN) {
      socket.send(JSON.stringify(msg));
    }
  }

  function sendResize() {
    var dpr = window.devicePixelRatio || 1;
    canvas.width = Math.round(window.innerWidth * dpr);
    canvas.height = Math.round(window.innerHeight * dpr);
    send({ type: "resize", width: window.innerWidth, height: window.innerHeight });
  }

  function connect() {
    socket = new WebSocket(socketURL());
    socket.onopen = function () { retry = 500; sendResize(); };
    socket.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "frame") {
        frame = msg.frame;
      }
    };
    socket.onclose = function () {
      setTimeout(connect, retry);
      retry = Math.min(retry * 2, 10000);
    };
  }

  function polyline(pts) {
    ctx.beginPath();
    for (var i = 0; i < pts.length; i++) {
      if (i === 0) { ctx.moveTo(pts[i].x, pts[i].y); } else { ctx.lineTo(pts[i].x, pts[i].y); }
    }
    ctx.stroke();
  }

  function shape(n) {
    var hw = n.width / 2, hh = n.height / 2;
    ctx.beginPath();
    if (n.shape === "diamond") {
      ctx.moveTo(0, -hh); ctx.lineTo(hw, 0); ctx.lineTo(0, hh); ctx.lineTo(-hw, 0); ctx.closePath();
    } else if (n.shape === "cylinder") {
      var ry = n.height * 0.12;
      ctx.ellipse(0, -hh + ry, hw, ry, 0, 0, Math.PI * 2);
      ctx.moveTo(-hw, -hh + ry); ctx.lineTo(-hw, hh - ry);
      ctx.ellipse(0, hh - ry, hw, ry, 0, Math.PI, 0, true);
      ctx.lineTo(hw, -hh + ry);
    } else {
      var r = Math.min(n.corner_radius, hw, hh);
      ctx.moveTo(-hw + r, -hh);
      ctx.arcTo(hw, -hh, hw, hh, r); ctx.arcTo(hw, hh, -hw, hh, r);
      ctx.arcTo(-hw, hh, -hw, -hh, r); ctx.arcTo(-hw, -hh, hw, -hh, r);
      ctx.closePath();
    }
  }

  function draw() {
    requestAnimationFrame(draw);
    if (!frame) { return; }
    var sx = canvas.width / frame.width, sy = canvas.height / frame.height;
    ctx.setTransform(sx, 0, 0, sy, 0, 0);
    ctx.clearRect(0, 0, frame.width, frame.height);

    (frame.edges || []).forEach(function (e) {
      ctx.strokeStyle = e.style.color;
      ctx.lineWidth = e.style.width;
      ctx.setLineDash(e.style.dash || []);
      polyline(e.points);
    });
    ctx.setLineDash([]);

    (frame.nodes || []).forEach(function (n) {
      ctx.save();
      ctx.translate(n.x, n.y);
      ctx.scale(n.pulse, n.pulse);
      shape(n);
      ctx.globalAlpha = n.opacity;
      ctx.fillStyle = n.color;
      ctx.fill();
      ctx.globalAlpha = 1;
      ctx.strokeStyle = n.color;
      ctx.lineWidth = 2;
      ctx.stroke();
      ctx.fillStyle = n.color;
      ctx.font = "12px monospace";
      ctx.textAlign = "center";
      ctx.textBaseline = "middle";
      ctx.fillText(n.label, 0, 0);
      ctx.restore();
    });

    (frame.packets || []).forEach(function (p) {
      ctx.strokeStyle = p.route_color;
      ctx.lineWidth = 2;
      ctx.setLineDash(p.route_dash || []);
      polyline(p.route);
      ctx.setLineDash([]);
      ctx.fillStyle = p.fill;
      ctx.beginPath();
      ctx.arc(p.x, p.y, p.size, 0, Math.PI * 2);
      ctx.fill();
      ctx.strokeStyle = "#ffffff";
      ctx.lineWidth = 1;
      ctx.stroke();
      ctx.fillStyle = "#ffffff";
      ctx.font = Math.round(p.size * 1.4) + "px sans-serif";
      ctx.textAlign = "center";
      ctx.textBaseline = "middle";
      ctx.fillText(p.glyph, p.x, p.y);
    });
  }

  window.addEventListener("mousemove", function (ev) {
    var now = Date.now();
    if (now - lastPointer < interval || !frame) { return; }
    lastPointer = now;
    var rect = canvas.getBoundingClientRect();
    send({
      type: "pointer",
      x: (ev.clientX - rect.left) * frame.width / rect.width,
      y: (ev.clientY - rect.top) * frame.height / rect.height
    });
  });
  window.addEventListener("resize", sendResize);

  connect();
  requestAnimationFrame(draw);
})();`
