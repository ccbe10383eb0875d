package inventory

import (
	"context"
	"time"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListAlarms lists triggered alarms across endpoints within the requested
// time window, optionally restricted to a set of alarm statuses (red,
// yellow, ...). Window validation errors surface before any endpoint call.
func (s *Service) ListAlarms(ctx context.Context, selected string, params TimeWindowParams, statuses []string) (*aggregate.Result[models.Alarm], error) {
	window, err := params.Resolve(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Alarm, error) {
			raw, err := client.Alarms(ctx, window.Begin, window.End)
			if err != nil {
				return nil, err
			}

			out := make([]models.Alarm, 0, len(raw))
			for _, a := range raw {
				if len(wanted) > 0 && !wanted[a.Status] {
					continue
				}

				record := models.Alarm{
					VCenter:      name,
					Datacenter:   client.Datacenter(),
					Name:         a.Name,
					Description:  a.Description,
					Status:       a.Status,
					CreatedTime:  a.Time.Format(time.RFC3339),
					Acknowledged: a.Acknowledged,
					AlarmSource:  a.Source,
				}
				if a.AcknowledgedTime != nil {
					record.AcknowledgedTime = a.AcknowledgedTime.Format(time.RFC3339)
				}
				out = append(out, record)
			}
			return out, nil
		})
}
