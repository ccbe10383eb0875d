package inventory

import (
	"context"
	"time"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListEvents lists vCenter events across endpoints within the requested
// time window.
func (s *Service) ListEvents(ctx context.Context, selected string, params TimeWindowParams) (*aggregate.Result[models.Event], error) {
	window, err := params.Resolve(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Event, error) {
			raw, err := client.Events(ctx, window.Begin, window.End)
			if err != nil {
				return nil, err
			}

			out := make([]models.Event, 0, len(raw))
			for _, e := range raw {
				out = append(out, models.Event{
					VCenter:     name,
					Datacenter:  client.Datacenter(),
					EventType:   e.Type,
					Message:     e.Message,
					CreatedTime: e.CreatedTime.Format(time.RFC3339),
					EventSource: e.Source,
					IPAddress:   e.IPAddress,
					UserName:    e.UserName,
				})
			}
			return out, nil
		})
}
