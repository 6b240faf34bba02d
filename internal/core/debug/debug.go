package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/mvollen/pylon/internal/core/bytes"
	"github.com/mvollen/pylon/internal/packets"
)

// StartPprofServer starts the default pprof HTTP server that can be accessed
// via localhost to get runtime information about the server.
// See https://golang.org/pkg/net/http/pprof/
func StartPprofServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf("localhost:%d", port)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// LogPacket writes a dump of one frame to the debug log. direction is a short
// marker such as "recv" or "send".
func LogPacket(logger *logrus.Logger, direction, peer string, p *packets.Packet) {
	body := bytes.StripPadding(p.Body[:])
	logger.Debugf("[%s] %s %s\nheader: %sbody (%d bytes): %s",
		direction,
		p.KindName(),
		peer,
		spew.Sdump(p.Header),
		len(body),
		spew.Sdump(body),
	)
}
