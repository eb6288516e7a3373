package gamification

import (
	"context"
	"fmt"

	"github.com/ehudso7/climate-guardian/models"
)

// Slugs of the badges granted by direct hooks rather than evaluation.
const (
	WelcomeBadgeSlug = "early-adopter"
	PremiumBadgeSlug = "premium-guardian"
)

// DefaultMissions is the seeded mission catalog.
func DefaultMissions() []models.Mission {
	mission := func(slug, title, desc string, cat models.MissionCategory, diff models.Difficulty, co2 float64, pts int) models.Mission {
		return models.Mission{Slug: slug, Title: title, Description: desc, Category: cat, Difficulty: diff, CO2Impact: co2, Points: pts, Active: true}
	}
	return []models.Mission{
		mission("bike-commute", "Bike to work", "Swap one car trip for a bike ride.", models.CategoryTransportation, models.DifficultyMedium, 2.6, 20),
		mission("public-transit", "Take public transit", "Use the bus, tram or train instead of driving.", models.CategoryTransportation, models.DifficultyEasy, 1.8, 15),
		mission("walk-errands", "Walk your errands", "Do today's short errands on foot.", models.CategoryTransportation, models.DifficultyEasy, 1.2, 10),
		mission("car-free-day", "Go car-free", "Leave the car parked for the whole day.", models.CategoryTransportation, models.DifficultyHard, 4.5, 35),
		mission("unplug-standby", "Unplug standby devices", "Switch off chargers and devices on standby.", models.CategoryEnergy, models.DifficultyEasy, 0.4, 10),
		mission("cold-wash", "Wash laundry cold", "Run the washing machine at 30°C or below.", models.CategoryEnergy, models.DifficultyEasy, 0.6, 10),
		mission("line-dry", "Line-dry your clothes", "Skip the tumble dryer today.", models.CategoryEnergy, models.DifficultyMedium, 1.5, 15),
		mission("thermostat-down", "Lower the thermostat", "Turn heating down by one degree.", models.CategoryEnergy, models.DifficultyMedium, 1.0, 15),
		mission("meatless-day", "Eat plant-based", "Have a fully plant-based day.", models.CategoryFood, models.DifficultyMedium, 3.0, 25),
		mission("local-produce", "Buy local produce", "Choose seasonal, locally grown food.", models.CategoryFood, models.DifficultyEasy, 0.8, 10),
		mission("zero-food-waste", "Zero food waste", "Plan meals so nothing is thrown away.", models.CategoryFood, models.DifficultyHard, 2.0, 30),
		mission("short-shower", "Take a five-minute shower", "Keep your shower under five minutes.", models.CategoryWater, models.DifficultyEasy, 0.5, 10),
		mission("fix-leak", "Fix a dripping tap", "Find and fix a leak at home.", models.CategoryWater, models.DifficultyHard, 0.9, 30),
		mission("reusable-bag", "Bring a reusable bag", "Refuse single-use bags while shopping.", models.CategoryConsumption, models.DifficultyEasy, 0.3, 5),
		mission("repair-dont-replace", "Repair instead of replace", "Mend something you would have thrown away.", models.CategoryConsumption, models.DifficultyHard, 5.0, 40),
		mission("second-hand", "Buy second-hand", "Pick a used item over a new one.", models.CategoryConsumption, models.DifficultyMedium, 2.2, 20),
	}
}

// DefaultBadges is the seeded badge catalog.
func DefaultBadges() []models.Badge {
	badge := func(slug, name, desc, icon string, rt models.RequirementType, value float64, pts int) models.Badge {
		return models.Badge{Slug: slug, Name: name, Description: desc, Icon: icon, RequirementType: rt, RequirementValue: value, Points: pts, Active: true}
	}
	return []models.Badge{
		badge("first-mission", "First Step", "Complete your first mission.", "sprout", models.RequirementMissionsCompleted, 1, 10),
		badge("ten-missions", "Eco Warrior", "Complete 10 missions.", "shield", models.RequirementMissionsCompleted, 10, 50),
		badge("fifty-missions", "Planet Hero", "Complete 50 missions.", "globe", models.RequirementMissionsCompleted, 50, 200),
		badge("co2-10", "Carbon Cutter", "Save 10 kg of CO2.", "leaf", models.RequirementCO2Saved, 10, 30),
		badge("co2-100", "Carbon Crusher", "Save 100 kg of CO2.", "mountain", models.RequirementCO2Saved, 100, 150),
		badge("streak-3", "On a Roll", "Keep a 3-day streak.", "flame", models.RequirementStreak, 3, 15),
		badge("streak-7", "Week of Green", "Keep a 7-day streak.", "calendar", models.RequirementStreak, 7, 50),
		badge("streak-30", "Habit Master", "Keep a 30-day streak.", "crown", models.RequirementStreak, 30, 300),
		badge("first-referral", "Tree Planter", "Invite your first friend.", "tree", models.RequirementReferrals, 1, 25),
		badge("five-referrals", "Community Builder", "Invite five friends.", "forest", models.RequirementReferrals, 5, 100),
		badge(WelcomeBadgeSlug, "Early Adopter", "Joined Climate Guardian.", "star", models.RequirementSpecial, 0, 5),
		badge(PremiumBadgeSlug, "Premium Guardian", "Supports the planet with a subscription.", "gem", models.RequirementPremium, 0, 50),
	}
}

// SeedCatalog inserts any catalog missions and badges that are missing. Existing rows are left untouched.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for _, m := range DefaultMissions() {
		m := m
		if err := s.store.SeedMission(ctx, &m); err != nil {
			return fmt.Errorf("seed mission %s: %w", m.Slug, err)
		}
	}
	for _, b := range DefaultBadges() {
		b := b
		if err := s.store.SeedBadge(ctx, &b); err != nil {
			return fmt.Errorf("seed badge %s: %w", b.Slug, err)
		}
	}
	return nil
}

// Missions lists the whole catalog.
func (s *Service) Missions(ctx context.Context) ([]models.Mission, error) {
	return s.store.ListMissions(ctx)
}
