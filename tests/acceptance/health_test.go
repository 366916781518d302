package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/handler"
)

func (s *Suite) fetchHealthData(sessionHandle, query string) (*http.Response, error) {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/health-data"+query, nil)
	if sessionHandle != "" {
		req.Header.Set(handler.SessionHeader, sessionHandle)
	}
	return http.DefaultClient.Do(req)
}

func (s *Suite) TestHealthData_Fetch() {
	authResp := s.login()

	resp, err := s.fetchHealthData(authResp.SessionHandle, "?days=3")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var snapshot domain.HealthSnapshot
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snapshot))

	s.NotEmpty(snapshot.DateRange.Start)
	s.NotEmpty(snapshot.DateRange.End)

	// The stub serves sleep for every requested date: 3 days back plus today.
	s.Len(snapshot.Sleep, 4)
	for i := 1; i < len(snapshot.Sleep); i++ {
		s.Less(snapshot.Sleep[i-1].Date, snapshot.Sleep[i].Date, "records must be sorted ascending")
	}
	s.Equal(25200, snapshot.Sleep[0].TotalSeconds)

	// Stress and body battery come embedded in the sleep payloads.
	s.Len(snapshot.Stress, 4)
	s.Equal(20, snapshot.Stress[0].AvgStress)
	s.Len(snapshot.BodyBattery, 4)
	s.Equal(75, snapshot.BodyBattery[0].Highest)
	s.Equal(35, snapshot.BodyBattery[0].Lowest)

	s.Len(snapshot.Activities, 1)
	s.Equal("running", snapshot.Activities[0].ActivityType)

	s.Len(snapshot.HeartRate, 4)
	s.Equal(52, snapshot.HeartRate[0].RestingHR)
}

func (s *Suite) TestHealthData_NoSession() {
	resp, err := s.fetchHealthData("", "")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestHealthData_DeadHandle() {
	resp, err := s.fetchHealthData("never-issued", "")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestHealthData_InvalidDays() {
	authResp := s.login()

	for _, query := range []string{"?days=0", "?days=91", "?days=abc"} {
		resp, err := s.fetchHealthData(authResp.SessionHandle, query)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	}
}

func (s *Suite) TestHealthEndpoint() {
	resp, err := http.Get(s.BaseURL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestMetricsEndpoint() {
	resp, err := http.Get(s.BaseURL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}
