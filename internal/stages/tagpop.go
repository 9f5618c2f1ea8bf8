package stages

import (
	"fmt"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// TagPopStage removes a tag before the sample reaches the sink. Collectors
// attach bookkeeping tags (host, collection method) that should not become
// series dimensions; popping a tag that is absent is a no-op.
type TagPopStage struct {
	meta
	tag string
}

func NewTagPopStage(name string, order int, filter Filter, tag string) (*TagPopStage, error) {
	if tag == "" {
		return nil, fmt.Errorf("tag_pop stage %q: tag is required", name)
	}
	return &TagPopStage{
		meta: meta{name: name, order: order, filter: filter},
		tag:  tag,
	}, nil
}

func (st *TagPopStage) Apply(s *domain.Sample) (*domain.Sample, error) {
	if _, ok := s.Tags[st.tag]; !ok {
		return s, nil
	}
	out := s.Clone()
	delete(out.Tags, st.tag)
	return out, nil
}

var _ ports.Stage = (*TagPopStage)(nil)
