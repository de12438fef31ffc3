package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	SegmentTopo      = "topo"
	SegmentMeio      = "meio"
	SegmentFundo     = "fundo"
	SegmentExpirado  = "expirado"
	SegmentPendentes = "pendentes"
	SegmentPagantes  = "pagantes"
	SegmentTodos     = "todos"
)

// segmentAliases são nomes que o painel antigo ainda envia.
var segmentAliases = map[string]string{
	"leads":         SegmentTopo,
	"lead":          SegmentTopo,
	"ativos":        SegmentPagantes,
	"expirados":     SegmentExpirado,
	"ex_assinantes": SegmentExpirado,
	"all":           SegmentTodos,
}

var segmentStages = map[string][]entity.FunnelStage{
	SegmentTopo:      {entity.StageTopo},
	SegmentMeio:      {entity.StageMeio},
	SegmentFundo:     {entity.StageFundo},
	SegmentExpirado:  {entity.StageExpirado},
	SegmentPendentes: {entity.StageMeio, entity.StageExpirado},
	SegmentPagantes:  {entity.StageFundo},
	SegmentTodos:     {entity.StageTopo, entity.StageMeio, entity.StageFundo, entity.StageExpirado},
}

type AudienceMember struct {
	ContactID string             `json:"telegram_id"`
	Name      string             `json:"nome"`
	Username  string             `json:"username,omitempty"`
	Stage     entity.FunnelStage `json:"estagio"`
}

type Audience struct {
	Segment string           `json:"segment"`
	Members []AudienceMember `json:"members"`
}

func (a *Audience) Size() int {
	return len(a.Members)
}

func (a *Audience) IDs() []string {
	ids := make([]string, 0, len(a.Members))
	for _, m := range a.Members {
		ids = append(ids, m.ContactID)
	}
	return ids
}

// NormalizeSegment resolve aliases. Nome desconhecido vira "todos" (ok=false) em vez de público vazio.
func NormalizeSegment(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, found := segmentAliases[n]; found {
		n = alias
	}
	if _, found := segmentStages[n]; found {
		return n, true
	}
	return SegmentTodos, false
}

type AudienceSegmenter struct {
	LeadRepo  entity.LeadRepositoryInterface
	OrderRepo entity.OrderRepositoryInterface
}

func NewAudienceSegmenter(leadRepo entity.LeadRepositoryInterface, orderRepo entity.OrderRepositoryInterface) *AudienceSegmenter {
	return &AudienceSegmenter{LeadRepo: leadRepo, OrderRepo: orderRepo}
}

// Contacts monta a visão única do funil do bot. Se um lead ficou para trás depois do checkout,
// o pedido prevalece.
func (s *AudienceSegmenter) Contacts(ctx context.Context, botID int64) ([]entity.FunnelContact, error) {
	leads, err := s.LeadRepo.ListByBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar leads: %w", err)
	}
	orders, err := s.OrderRepo.ListByBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar pedidos: %w", err)
	}
	return MergeContacts(leads, orders), nil
}

func (s *AudienceSegmenter) Segment(ctx context.Context, botID int64, name string) (*Audience, error) {
	contacts, err := s.Contacts(ctx, botID)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabaseError, Message: "falha ao montar público", Err: err}
	}
	segment, known := NormalizeSegment(name)
	if !known {
		log.Printf("⚠️ [SEGMENT] Segmento '%s' desconhecido no bot %d, usando '%s'", name, botID, SegmentTodos)
	}
	return SelectSegment(contacts, segment), nil
}

func MergeContacts(leads []*entity.Lead, orders []*entity.Order) []entity.FunnelContact {
	byID := make(map[string]entity.FunnelContact, len(leads)+len(orders))
	for _, l := range leads {
		byID[l.UserID] = entity.LeadContact(l)
	}
	for _, o := range orders {
		byID[o.ContactID] = entity.OrderContact(o)
	}
	out := make([]entity.FunnelContact, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID() < out[j].ContactID() })
	return out
}

// SelectSegment filtra os contatos pelo segmento já normalizado. Membros saem ordenados por id.
func SelectSegment(contacts []entity.FunnelContact, segment string) *Audience {
	stages, ok := segmentStages[segment]
	if !ok {
		segment = SegmentTodos
		stages = segmentStages[SegmentTodos]
	}
	want := make(map[entity.FunnelStage]bool, len(stages))
	for _, st := range stages {
		want[st] = true
	}

	aud := &Audience{Segment: segment, Members: []AudienceMember{}}
	seen := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		id := c.ContactID()
		if seen[id] || !want[c.Stage()] {
			continue
		}
		seen[id] = true
		aud.Members = append(aud.Members, AudienceMember{
			ContactID: id,
			Name:      c.DisplayName(),
			Username:  c.Username(),
			Stage:     c.Stage(),
		})
	}
	sort.Slice(aud.Members, func(i, j int) bool { return aud.Members[i].ContactID < aud.Members[j].ContactID })
	return aud
}
