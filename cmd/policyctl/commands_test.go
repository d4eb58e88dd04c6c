package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/app"
	"github.com/bongitrade/policy-service/internal/config"
	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/repository"
	"github.com/bongitrade/policy-service/internal/service"
	"github.com/bongitrade/policy-service/internal/worker"
)

func TestBootstrapAdminFlags(t *testing.T) {
	cmd := bootstrapAdminCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--username", "root", "--email", "root@example.com"}))

	username, err := cmd.Flags().GetString("username")
	require.NoError(t, err)
	assert.Equal(t, "root", username)

	name, err := cmd.Flags().GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", name)
}

func TestSendRemindersFlags(t *testing.T) {
	cmd := sendRemindersCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--policy", "policy-1"}))
	policy, err := cmd.Flags().GetString("policy")
	require.NoError(t, err)
	assert.Equal(t, "policy-1", policy)
}

func TestOperatorIsStaff(t *testing.T) {
	assert.True(t, operator.IsStaff())
}

type activePolicies struct {
	repository.PolicyRepository
	policies []domain.Policy
}

func (r activePolicies) List(context.Context, repository.PolicyFilter) ([]domain.Policy, error) {
	return r.policies, nil
}

type countingGateway struct{ sent atomic.Int32 }

func (g *countingGateway) Send(context.Context, string, string) error {
	g.sent.Add(1)
	return nil
}

func TestRemindWithWorkerDeliversPastBuffer(t *testing.T) {
	repo := activePolicies{}
	for i := 0; i < 10; i++ {
		repo.policies = append(repo.policies, domain.Policy{
			ID:           fmt.Sprintf("policy-%d", i),
			PolicyNumber: fmt.Sprintf("POL-%d", i),
			Status:       domain.PolicyStatusActive,
			ContactPhone: "0711111111",
		})
	}

	cfg := &config.Config{}
	blockOnFullQueue(cfg)
	queue := worker.NewQueue(config.NotificationConfig{QueueDriver: "memory", QueueBuffer: 2, BlockWhenFull: cfg.Notification.BlockWhenFull}, nil)
	gateway := &countingGateway{}
	notifications := service.NewNotificationService(nil, queue, "BONGI TRADE", zap.NewNop(), nil)

	c := &app.Container{
		Queue: queue,
		Policies: service.NewPolicyService(service.PolicyDependencies{
			Repos:     repository.Repositories{Policies: repo},
			Reminders: notifications,
		}),
		Worker: worker.StartNotificationWorker(nil, queue, gateway, config.NotificationConfig{Workers: 2}, zap.NewNop(), nil),
	}

	queued, err := remindWithWorker(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, queued)
	assert.EqualValues(t, 10, gateway.sent.Load())
}
