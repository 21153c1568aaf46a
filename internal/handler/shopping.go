package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/store"
	"github.com/quailhollow/cradle/internal/websocket"
)

type ShoppingHandler struct {
	store *store.ShoppingStore
	hub   *websocket.Hub
}

func NewShoppingHandler(s *store.ShoppingStore, hub *websocket.Hub) *ShoppingHandler {
	return &ShoppingHandler{store: s, hub: hub}
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		log.Printf("failed to list shopping items: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		log.Printf("failed to get shopping item: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.ShoppingItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	for i := range item.PriceOptions {
		if item.PriceOptions[i].ID == "" {
			item.PriceOptions[i].ID = uuid.NewString()
		}
	}

	created, err := h.store.Add(item)
	if err != nil {
		log.Printf("failed to create shopping item: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("shopping_item", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var item model.ShoppingItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item.ID = r.PathValue("id")

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	for i := range item.PriceOptions {
		if item.PriceOptions[i].ID == "" {
			item.PriceOptions[i].ID = uuid.NewString()
		}
	}

	updated, err := h.store.Update(item)
	if err != nil {
		log.Printf("failed to update shopping item: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("shopping_item", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Remove(id); err != nil {
		log.Printf("failed to delete shopping item: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("shopping_item", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShoppingHandler) AddPriceOption(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	var po model.PriceOption
	if err := json.NewDecoder(r.Body).Decode(&po); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(po.Store) == "" {
		writeError(w, http.StatusBadRequest, "store is required")
		return
	}
	if po.ID == "" {
		po.ID = uuid.NewString()
	}

	if err := h.store.AddPriceOption(itemID, po); err != nil {
		log.Printf("failed to add price option: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to add price option")
		return
	}

	item := h.reloadItem(w, itemID)
	if item == nil {
		return
	}
	h.hub.Broadcast(websocket.NewMessage("shopping_item", "updated", itemID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) UpdatePriceOption(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	var po model.PriceOption
	if err := json.NewDecoder(r.Body).Decode(&po); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	po.ID = r.PathValue("option_id")

	if err := h.store.UpdatePriceOption(itemID, po); err != nil {
		log.Printf("failed to update price option: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update price option")
		return
	}

	item := h.reloadItem(w, itemID)
	if item == nil {
		return
	}
	h.hub.Broadcast(websocket.NewMessage("shopping_item", "updated", itemID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) DeletePriceOption(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	if err := h.store.RemovePriceOption(itemID, r.PathValue("option_id")); err != nil {
		log.Printf("failed to delete price option: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete price option")
		return
	}

	item := h.reloadItem(w, itemID)
	if item == nil {
		return
	}
	h.hub.Broadcast(websocket.NewMessage("shopping_item", "updated", itemID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	if err := h.store.ToggleStar(itemID, r.PathValue("option_id")); err != nil {
		log.Printf("failed to toggle star: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle star")
		return
	}

	item := h.reloadItem(w, itemID)
	if item == nil {
		return
	}
	h.hub.Broadcast(websocket.NewMessage("shopping_item", "updated", itemID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories()
	if err != nil {
		log.Printf("failed to list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// reloadItem fetches the item's current state, writing an error response and
// returning nil when it cannot be served.
func (h *ShoppingHandler) reloadItem(w http.ResponseWriter, itemID string) *model.ShoppingItem {
	item, err := h.store.GetByID(itemID)
	if err != nil {
		log.Printf("failed to reload shopping item: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return nil
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil
	}
	return item
}
