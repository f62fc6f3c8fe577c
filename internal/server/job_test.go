package server

import (
	"errors"
	"testing"
	"time"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{Kind: KindSearch, DataDir: "data", Strategy: "reduction"})

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}
	if job.Config.DataDir != "data" || job.Config.Strategy != "reduction" {
		t.Errorf("Config not set correctly: %+v", job.Config)
	}
}

func TestJobManager_GetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Kind: KindSearch})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	retrieved.State = StateFailed
	again, _ := jm.GetJob(job.ID)
	if again.State != StatePending {
		t.Errorf("Mutating a snapshot changed the stored job: %s", again.State)
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{Kind: KindSearch})
	time.Sleep(time.Millisecond)
	second := jm.CreateJob(JobConfig{Kind: KindBench})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Kind: KindSearch})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Progress = Progress{Done: 1, Total: 3}
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Errorf("State should be running, got %s", updated.State)
	}
	if updated.Progress.Done != 1 || updated.Progress.Total != 3 {
		t.Errorf("Progress not updated: %+v", updated.Progress)
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobManager_GetRunningJobs(t *testing.T) {
	jm := NewJobManager()

	a := jm.CreateJob(JobConfig{Kind: KindSearch})
	jm.CreateJob(JobConfig{Kind: KindSearch})
	jm.UpdateJob(a.ID, func(j *Job) { j.State = StateRunning })

	running := jm.GetRunningJobs()
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("Expected only job %s running, got %d jobs", a.ID, len(running))
	}
}

func TestJobManager_DeleteJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Kind: KindSearch})

	if err := jm.DeleteJob(job.ID); !errors.Is(err, ErrJobActive) {
		t.Errorf("Deleting a pending job should fail with ErrJobActive, got %v", err)
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
	if err := jm.DeleteJob(job.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, exists := jm.GetJob(job.ID); exists {
		t.Error("Job should be gone")
	}
	if err := jm.DeleteJob(job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJob_Elapsed(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	end := start.Add(time.Second)

	job := &Job{StartTime: start, EndTime: &end}
	if job.Elapsed() != time.Second {
		t.Errorf("Elapsed = %v, want 1s", job.Elapsed())
	}

	job.EndTime = nil
	if job.Elapsed() < 2*time.Second {
		t.Errorf("Elapsed of a running job should keep growing, got %v", job.Elapsed())
	}
}

func TestEventBroadcaster_ReplaysLastEvent(t *testing.T) {
	eb := NewEventBroadcaster()
	eb.Broadcast(ProgressEvent{JobID: "j", State: StateRunning, Done: 2, Total: 5})

	ch := eb.Subscribe("j")
	select {
	case ev := <-ch:
		if ev.Done != 2 || ev.Total != 5 {
			t.Errorf("Unexpected replayed event: %+v", ev)
		}
	default:
		t.Fatal("Expected last event to be replayed")
	}

	eb.Broadcast(ProgressEvent{JobID: "j", State: StateCompleted, Done: 5, Total: 5})
	if ev := <-ch; ev.State != StateCompleted {
		t.Errorf("Expected completed event, got %+v", ev)
	}

	eb.CleanupJob("j")
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cleanup")
	}
	// Unsubscribing after cleanup must not close the channel twice
	eb.Unsubscribe("j", ch)
}
