package transfer

import (
	"context"
	"testing"
	"time"
)

func TestRegisterInbound_StartsPendingConsent(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	snap := findSnapshot(t, c, id)
	if snap.State != PendingConsent {
		t.Errorf("State = %v, want PendingConsent", snap.State)
	}
}

func TestRespondThenAwaitConsent_Accept(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Respond(id, true); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	state, err := c.AwaitConsent(context.Background(), id)
	if err != nil {
		t.Fatalf("AwaitConsent() error = %v", err)
	}
	if state != Accepted {
		t.Errorf("AwaitConsent() = %v, want Accepted", state)
	}
}

func TestAwaitConsentThenRespond_Reject(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	done := make(chan State, 1)
	go func() {
		s, _ := c.AwaitConsent(context.Background(), id)
		done <- s
	}()

	time.Sleep(10 * time.Millisecond)
	if err := c.Respond(id, false); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	select {
	case s := <-done:
		if s != Rejected {
			t.Errorf("AwaitConsent() = %v, want Rejected", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for AwaitConsent")
	}
}

func TestRespond_SecondCallIsNoop(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Respond(id, true); err != nil {
		t.Fatalf("first Respond() error = %v", err)
	}
	if err := c.Respond(id, false); err != nil {
		t.Fatalf("second Respond() error = %v", err)
	}

	state, _ := c.AwaitConsent(context.Background(), id)
	if state != Accepted {
		t.Errorf("AwaitConsent() = %v, want Accepted (first decision wins)", state)
	}
}

func TestRespond_UnknownID(t *testing.T) {
	c := NewCoordinator()
	if err := c.Respond("nonexistent", true); err != ErrNotPending {
		t.Errorf("Respond() error = %v, want ErrNotPending", err)
	}
}

func TestBeginStreaming_AcceptedMovesToStreamingWithTempPath(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Respond(id, true); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := c.AwaitConsent(context.Background(), id); err != nil {
		t.Fatalf("AwaitConsent() error = %v", err)
	}

	if err := c.BeginStreaming(id, "/tmp/a.txt.part-"+id); err != nil {
		t.Fatalf("BeginStreaming() error = %v", err)
	}

	snap := findSnapshot(t, c, id)
	if snap.State != Streaming {
		t.Errorf("State = %v, want Streaming", snap.State)
	}
	if snap.TempPath != "/tmp/a.txt.part-"+id {
		t.Errorf("TempPath = %q", snap.TempPath)
	}
}

func TestBeginStreaming_BeforeConsentReturnsErrNotAccepted(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.BeginStreaming(id, "/tmp/a.txt.part-"+id); err != ErrNotAccepted {
		t.Errorf("BeginStreaming() error = %v, want ErrNotAccepted", err)
	}
}

func TestBeginStreaming_AfterTerminalReturnsErrNotAccepted(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Respond(id, false); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := c.AwaitConsent(context.Background(), id); err != nil {
		t.Fatalf("AwaitConsent() error = %v", err)
	}

	if err := c.BeginStreaming(id, "/tmp/a.txt.part-"+id); err != ErrNotAccepted {
		t.Errorf("BeginStreaming() error = %v, want ErrNotAccepted", err)
	}
}

func TestBeginStreaming_PublishesFileReceiveStart(t *testing.T) {
	c := NewCoordinator()
	events := c.SubscribeEvents()
	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Respond(id, true); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := c.AwaitConsent(context.Background(), id); err != nil {
		t.Fatalf("AwaitConsent() error = %v", err)
	}
	<-events // file-transfer-request is not under test here

	tempPath := "/tmp/a.txt.part-" + id
	if err := c.BeginStreaming(id, tempPath); err != nil {
		t.Fatalf("BeginStreaming() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != EventFileReceiveStart || ev.ID != id {
			t.Errorf("event = %+v", ev)
		}
		if ev.Transfer.State != Streaming || ev.Transfer.TempPath != tempPath {
			t.Errorf("event transfer = %+v", ev.Transfer)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRegisterOutbound_StartsStreaming(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})

	snap := findSnapshot(t, c, id)
	if snap.State != Streaming {
		t.Errorf("State = %v, want Streaming", snap.State)
	}
}

func TestComplete_RetiresTransfer(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Complete(id, "/downloads/a.txt"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	snap := findSnapshot(t, c, id)
	if snap.State != Completed {
		t.Errorf("State = %v, want Completed", snap.State)
	}
	if snap.FinalPath != "/downloads/a.txt" {
		t.Errorf("FinalPath = %q", snap.FinalPath)
	}
}

func TestComplete_AlreadyTerminal(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})
	if err := c.Complete(id, "x"); err != nil {
		t.Fatal(err)
	}
	if err := c.Complete(id, "x"); err != ErrAlreadyTerminal {
		t.Errorf("second Complete() error = %v, want ErrAlreadyTerminal", err)
	}
}

func TestCancel_FiresTransferContext(t *testing.T) {
	c := NewCoordinator()
	id, tctx := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})

	if err := c.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	select {
	case <-tctx.Done():
	case <-time.After(time.Second):
		t.Fatal("transfer context was not cancelled")
	}
}

func TestNoteProgress_IgnoresBackwardsMovement(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})

	c.NoteProgress(id, 1000)
	c.NoteProgress(id, 500) // should be ignored

	snap := findSnapshot(t, c, id)
	if snap.BytesTransferred != 1000 {
		t.Errorf("BytesTransferred = %d, want 1000", snap.BytesTransferred)
	}
}

func TestEventBus_DeliversFileTransferRequest(t *testing.T) {
	c := NewCoordinator()
	events := c.SubscribeEvents()

	id, _ := c.RegisterInbound(context.Background(), Meta{FileName: "a.txt"})

	select {
	case ev := <-events:
		if ev.Kind != EventFileTransferRequest || ev.ID != id {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSnapshot_IncludesRetiredTransfers(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})
	c.Complete(id, "/x")

	found := false
	for _, tr := range c.Snapshot() {
		if tr.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("Snapshot() did not include retired transfer")
	}
}

func TestFailOutbound_RejectedMapsToRejectedEvent(t *testing.T) {
	c := NewCoordinator()
	id, _ := c.RegisterOutbound(context.Background(), Meta{FileName: "a.txt"})
	events := c.SubscribeEvents()

	if err := c.FailOutbound(id, Rejected, "receiver rejected"); err != nil {
		t.Fatalf("FailOutbound() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != EventFileTransferRejected {
			t.Errorf("event kind = %v, want EventFileTransferRejected", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	snap := findSnapshot(t, c, id)
	if snap.State != Rejected {
		t.Errorf("State = %v, want Rejected", snap.State)
	}
}

func TestPublishText_DeliversToSubscriber(t *testing.T) {
	c := NewCoordinator()
	texts := c.SubscribeText()

	c.PublishText("alice", "hello")

	select {
	case rt := <-texts:
		if rt.SenderAlias != "alice" || rt.Content != "hello" {
			t.Errorf("ReceivedText = %+v", rt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for text event")
	}
}

func findSnapshot(t *testing.T, c *Coordinator, id string) Transfer {
	t.Helper()
	for _, tr := range c.Snapshot() {
		if tr.ID == id {
			return tr
		}
	}
	t.Fatalf("no snapshot found for id %s", id)
	return Transfer{}
}
