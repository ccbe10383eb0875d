package inventory

import (
	"context"

	"vcbridge/pkg/log"
	"vcbridge/pkg/vsphere"
)

// TagIndex maps object name -> category name -> tag names, resolved from
// the flat id-keyed answers of the tag service.
type TagIndex map[string]map[string][]string

// BuildTagIndex resolves the tag associations for one object kind into a
// name-keyed index. The tag service only hands out ids; this stitches the
// category, tag and attachment listings back together.
func BuildTagIndex(ctx context.Context, tc vsphere.TagClient, objType vsphere.ObjectType) (TagIndex, error) {
	categories, err := tc.Categories(ctx)
	if err != nil {
		return nil, err
	}
	categoryByID := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryByID[c.ID] = c.Name
	}

	tags, err := tc.Tags(ctx)
	if err != nil {
		return nil, err
	}
	tagByID := make(map[string]vsphere.Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}

	objects, err := tc.Objects(ctx, objType)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[string]string, len(objects))
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		nameByID[o.ID] = o.Name
		ids = append(ids, o.ID)
	}

	attachments, err := tc.Attachments(ctx, objType, ids)
	if err != nil {
		return nil, err
	}

	index := make(TagIndex)
	for _, att := range attachments {
		objName, ok := nameByID[att.ObjectID]
		if !ok {
			continue
		}
		for _, tagID := range att.TagIDs {
			tag, ok := tagByID[tagID]
			if !ok {
				continue
			}
			category, ok := categoryByID[tag.CategoryID]
			if !ok {
				continue
			}

			byCategory := index[objName]
			if byCategory == nil {
				byCategory = make(map[string][]string)
				index[objName] = byCategory
			}
			byCategory[category] = append(byCategory[category], tag.Name)
		}
	}
	return index, nil
}

// tagIndex opens a tag session against one endpoint and builds the index
// for objType. A tag-service failure is not fatal to the listing: the
// endpoint just contributes no tag matches.
func (s *Service) tagIndex(ctx context.Context, endpoint string, objType vsphere.ObjectType) TagIndex {
	ep, ok := s.fanout.Pool().Endpoints().Get(endpoint)
	if !ok {
		return nil
	}

	tc, err := s.dialer.DialTags(ctx, ep)
	if err != nil {
		log.Warn().Err(err).Str("vcenter", endpoint).Msg("Tag service unavailable, skipping tag resolution")
		return nil
	}
	defer func() {
		if err := tc.Close(ctx); err != nil {
			log.Debug().Err(err).Str("vcenter", endpoint).Msg("Failed to close tag session")
		}
	}()

	index, err := BuildTagIndex(ctx, tc, objType)
	if err != nil {
		log.Warn().Err(err).Str("vcenter", endpoint).Msg("Tag resolution failed, skipping")
		return nil
	}
	return index
}

// matchTags applies the category/tags filter to one object. With an empty
// tag list every object carrying the category matches. The returned slice
// holds the tags of the object that satisfied the filter.
func matchTags(index TagIndex, objName, category string, wanted []string) ([]string, bool) {
	attached := index[objName][category]
	if len(attached) == 0 {
		return nil, false
	}
	if len(wanted) == 0 {
		return attached, true
	}

	var matched []string
	for _, tag := range attached {
		for _, w := range wanted {
			if tag == w {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched, len(matched) > 0
}
