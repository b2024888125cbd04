package domain

import (
	"github.com/Synap-core/backend-sub006/internal/domain/events"
	"github.com/Synap-core/backend-sub006/internal/domain/pod"
	"github.com/Synap-core/backend-sub006/internal/domain/tasks"
)

const (
	SourceAPI        = events.SourceAPI
	SourceAutomation = events.SourceAutomation
	SourceSync       = events.SourceSync
	SourceMigration  = events.SourceMigration

	RoleViewer = pod.RoleViewer
	RoleEditor = pod.RoleEditor
	RoleAdmin  = pod.RoleAdmin
	RoleOwner  = pod.RoleOwner

	ProposalPending   = pod.ProposalPending
	ProposalValidated = pod.ProposalValidated
	ProposalRejected  = pod.ProposalRejected

	TaskQueued  = tasks.StatusQueued
	TaskRunning = tasks.StatusRunning
	TaskDone    = tasks.StatusDone
	TaskFailed  = tasks.StatusFailed
	TaskDead    = tasks.StatusDead
)

type Event = events.Event

type Workspace = pod.Workspace
type WorkspaceMember = pod.WorkspaceMember
type Entity = pod.Entity
type Project = pod.Project
type APIKey = pod.APIKey
type Proposal = pod.Proposal
type Template = pod.Template
type Message = pod.Message

type Task = tasks.Task
type TaskStep = tasks.TaskStep
