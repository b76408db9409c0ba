// Package list builds the subscription list response: every valid,
// user-updatable slot's channel and time interval.
package list

import (
	"github.com/janisbent/ectf-workshop/store"
	"github.com/janisbent/ectf-workshop/wire"
)

// Build scans slots 1..8 (channel 0 is never listed) and returns the
// encoded list response. Infallible.
func Build(st *store.Store) ([]byte, error) {
	var entries []wire.ChannelInfo

	for i := 1; i < store.Slots; i++ {
		sub, err := st.Get(i)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		entries = append(entries, wire.ChannelInfo{
			Channel: sub.Channel,
			Start:   sub.Start,
			End:     sub.End,
		})
	}

	return wire.MarshalList(entries), nil
}
