/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/reader"
	"github.com/indrora/vbf/vbf/record"
	"github.com/sirupsen/logrus"
)

// openFile opens path with the configured defaults and, when asked to, maps
// its index. A file without an index is still returned.
func openFile(path string, opts ...reader.Option) (*reader.Reader, error) {
	r, err := reader.Open(path, append(config.openOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{
		"file":        path,
		"compression": r.Compression(),
	})
	if config.MapIndex && !r.IsStreamed() {
		ok, err := r.MapIndex()
		if err != nil {
			r.Close()
			return nil, err
		}
		log = log.WithField("index", ok)
	}
	log.Debug("opened")
	return r, nil
}

// rawRegistry decodes the built in banks and keeps everything else as raw
// bytes, so nothing is lost when a packet is copied.
func rawRegistry() *format.Registry {
	reg := record.DefaultRegistry()
	reg.SetFallback(format.RawBuilder)
	return reg
}
