package acceptance

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/user"
)

type reservationBody struct {
	ID           uuid.UUID `json:"id"`
	BikeID       uuid.UUID `json:"bikeId"`
	UserID       uuid.UUID `json:"userId"`
	ReservedAt   time.Time `json:"reservedAt"`
	ReservedTill time.Time `json:"reservedTill"`
}

func TestReserve(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)

	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var res reservationBody
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal reservation response: %v", err)
	}
	if res.BikeID != bikeID || res.UserID != riderID {
		t.Errorf("reservation holds bike %s for user %s, want %s for %s", res.BikeID, res.UserID, bikeID, riderID)
	}
	if got := res.ReservedTill.Sub(res.ReservedAt); got != bike.HoldDuration {
		t.Errorf("hold lasts %s, want %s", got, bike.HoldDuration)
	}

	if b := ts.GetBike(t, bikeID); b.Status != bike.StatusReserved {
		t.Errorf("bike status is %q, want %q", b.Status, bike.StatusReserved)
	}
}

func TestReserveNotAvailable(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	otherID, _ := ts.CreateTestUser(t, "other", user.RoleRider, 4)
	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	bikeID := ts.CreateRentedBike(t, otherID)

	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestReserveAtBlockedStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.BlockTestStation(t, stationID)

	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestReserveOverReservationLimit(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	for i := 0; i < 3; i++ {
		held := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
		ts.ReserveTestBike(t, held, riderID)
	}
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)

	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

// Lapsed holds do not count against the reservation limit even while
// their rows still sit in the table.
func TestReserveAfterHoldsLapsed(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	for i := 0; i < 3; i++ {
		held := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
		ts.ReserveTestBike(t, held, riderID)
	}

	ts.Clock.Advance(31 * time.Minute)

	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestReserveBlockedUser(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	ts.BlockTestUser(t, riderID)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)

	w := ts.POST("/bikes/reserved", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d: %s", http.StatusForbidden, w.Code, w.Body.String())
	}
}

func TestCancelReservation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, bikeID, riderID)

	w := ts.DELETE("/bikes/reserved/"+bikeID.String(), rider)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	if b := ts.GetBike(t, bikeID); b.Status != bike.StatusAvailable {
		t.Errorf("bike status is %q, want %q", b.Status, bike.StatusAvailable)
	}
	if n := ts.ReservationCount(t, bikeID); n != 0 {
		t.Errorf("expected no reservations after cancel, got %d", n)
	}
}

// Cancelling twice fails the second time: the bike is no longer reserved.
func TestCancelReservationTwice(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, bikeID, riderID)

	if w := ts.DELETE("/bikes/reserved/"+bikeID.String(), rider); w.Code != http.StatusOK {
		t.Fatalf("first cancel failed: %d: %s", w.Code, w.Body.String())
	}
	if w := ts.DELETE("/bikes/reserved/"+bikeID.String(), rider); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d on second cancel, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestCancelReservationWrongUser(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	holderID, _ := ts.CreateTestUser(t, "holder", user.RoleRider, 4)
	_, other := ts.CreateTestUser(t, "other", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, bikeID, holderID)

	w := ts.DELETE("/bikes/reserved/"+bikeID.String(), other)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

// Cancelling for a bike that does not exist reports an invalid state
// rather than a missing resource.
func TestCancelReservationMissingBike(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)

	w := ts.DELETE("/bikes/reserved/"+uuid.New().String(), rider)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

// Once the hold lapses the bike can be rented by anyone, and the stale
// reservation is gone.
func TestReservationExpiry(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	holderID, _ := ts.CreateTestUser(t, "holder", user.RoleRider, 4)
	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, bikeID, holderID)

	if w := ts.POST("/bikes/rented", rider, map[string]string{"id": bikeID.String()}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected rent to fail while held, got %d: %s", w.Code, w.Body.String())
	}

	ts.Clock.Advance(31 * time.Minute)

	w := ts.POST("/bikes/rented", rider, map[string]string{"id": bikeID.String()})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d after hold lapsed, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	if n := ts.ReservationCount(t, bikeID); n != 0 {
		t.Errorf("expected lapsed reservation to be removed, got %d", n)
	}
}

// Listing available bikes sweeps lapsed holds back to available.
func TestReservationExpiryOnListing(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	holderID, holder := ts.CreateTestUser(t, "holder", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	bikeID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, bikeID, holderID)

	ts.Clock.Advance(31 * time.Minute)

	w := ts.GET("/bikes", holder)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var body struct {
		Bikes []bikeBody `json:"bikes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal bikes response: %v", err)
	}
	found := false
	for _, b := range body.Bikes {
		if b.ID == bikeID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bike %s to be listed available after hold lapsed", bikeID)
	}
	if b := ts.GetBike(t, bikeID); b.Status != bike.StatusAvailable {
		t.Errorf("bike status is %q, want %q", b.Status, bike.StatusAvailable)
	}
}
