package acceptance

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/station"
	"github.com/saltybikes/fleet-backend/user"
)

type stationBody struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	State            string    `json:"state"`
	BikesLimit       int       `json:"bikesLimit"`
	ActiveBikesCount int       `json:"activeBikesCount"`
}

func decodeStations(t *testing.T, data []byte) []stationBody {
	t.Helper()
	var body struct {
		Stations []stationBody `json:"stations"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("failed to unmarshal stations response: %v", err)
	}
	return body.Stations
}

func TestCreateStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)

	w := ts.POST("/stations", admin, map[string]interface{}{"name": "Harbor", "bikesLimit": 8})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var got stationBody
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal station response: %v", err)
	}
	if got.Name != "Harbor" || got.BikesLimit != 8 || got.State != station.Working.String() {
		t.Errorf("unexpected station: %+v", got)
	}
}

func TestCreateStationNegativeLimit(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)

	w := ts.POST("/stations", admin, map[string]interface{}{"name": "Harbor", "bikesLimit": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestDeleteStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)
	stationID := ts.CreateTestStation(t, "Empty", 5)

	w := ts.DELETE("/stations/"+stationID.String(), admin)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d: %s", http.StatusNoContent, w.Code, w.Body.String())
	}
}

func TestDeleteStationWithBikes(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)
	stationID := ts.CreateTestStation(t, "Busy", 5)
	ts.CreateTestBike(t, stationID, bike.StatusAvailable)

	w := ts.DELETE("/stations/"+stationID.String(), admin)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
}

func TestStationBikesListsOnlyAvailable(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	availableID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	blockedID := ts.CreateTestBike(t, stationID, bike.StatusBlocked)
	reservedID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, reservedID, riderID)

	w := ts.GET("/stations/"+stationID.String()+"/bikes", rider)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var body struct {
		Bikes []bikeBody `json:"bikes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal bikes response: %v", err)
	}
	if len(body.Bikes) != 1 || body.Bikes[0].ID != availableID {
		t.Errorf("expected only bike %s listed, got %+v (blocked %s, reserved %s)",
			availableID, body.Bikes, blockedID, reservedID)
	}
}

func TestStationBikesMissingStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)

	w := ts.GET("/stations/"+uuid.New().String()+"/bikes", rider)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d: %s", http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestBlockStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)
	stationID := ts.CreateTestStation(t, "Central", 5)

	w := ts.POST("/stations/blocked", admin, map[string]string{"id": stationID.String()})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	if w := ts.POST("/stations/blocked", admin, map[string]string{"id": stationID.String()}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d on double block, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

// Blocking a station cancels every reservation held on its bikes and
// releases those bikes back to available.
func TestBlockStationCancelsReservations(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)
	riderID, _ := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	stationID := ts.CreateTestStation(t, "Central", 5)
	heldID := ts.CreateTestBike(t, stationID, bike.StatusAvailable)
	ts.ReserveTestBike(t, heldID, riderID)
	otherStation := ts.CreateTestStation(t, "Other", 5)
	otherHeldID := ts.CreateTestBike(t, otherStation, bike.StatusAvailable)
	ts.ReserveTestBike(t, otherHeldID, riderID)

	w := ts.POST("/stations/blocked", admin, map[string]string{"id": stationID.String()})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	if n := ts.ReservationCount(t, heldID); n != 0 {
		t.Errorf("expected reservation at blocked station cancelled, got %d", n)
	}
	if b := ts.GetBike(t, heldID); b.Status != bike.StatusAvailable {
		t.Errorf("bike at blocked station is %q, want %q", b.Status, bike.StatusAvailable)
	}
	if n := ts.ReservationCount(t, otherHeldID); n != 1 {
		t.Errorf("expected reservation at other station untouched, got %d", n)
	}
}

func TestUnblockStation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, admin := ts.CreateTestUser(t, "admin", user.RoleAdmin, 0)
	stationID := ts.CreateTestStation(t, "Central", 5)
	ts.BlockTestStation(t, stationID)

	w := ts.DELETE("/stations/blocked/"+stationID.String(), admin)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, w.Code, w.Body.String())
	}

	if w := ts.DELETE("/stations/blocked/"+stationID.String(), admin); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d on double unblock, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestActiveStationsListing(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, rider := ts.CreateTestUser(t, "rider", user.RoleRider, 4)
	workingID := ts.CreateTestStation(t, "Working", 5)
	blockedID := ts.CreateTestStation(t, "Blocked", 5)
	ts.BlockTestStation(t, blockedID)
	ts.CreateTestBike(t, workingID, bike.StatusAvailable)
	ts.CreateTestBike(t, workingID, bike.StatusAvailable)

	w := ts.GET("/stations/active", rider)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	stations := decodeStations(t, w.Body.Bytes())
	if len(stations) != 1 || stations[0].ID != workingID {
		t.Fatalf("expected only station %s listed, got %+v", workingID, stations)
	}
	if stations[0].ActiveBikesCount != 2 {
		t.Errorf("active bikes count is %d, want 2", stations[0].ActiveBikesCount)
	}
}
